// Package secondary triggers the external dynasty-value ranking script.
package secondary

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// waitDelay bounds how long Run waits for output pipes after the process is
// gone. Descendants that inherited the pipes would otherwise hold Wait open.
const waitDelay = 2 * time.Second

// ScriptRunner runs an external command synchronously and reports its exit code.
// Output is streamed to the logger at debug level.
type ScriptRunner struct {
	Command string
	Args    []string
	Dir     string

	// Timeout bounds a single run. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// NewScriptRunner creates a runner for `command script`.
func NewScriptRunner(command, script, dir string, timeout time.Duration) *ScriptRunner {
	var args []string
	if script != "" {
		args = []string{script}
	}
	return &ScriptRunner{Command: command, Args: args, Dir: dir, Timeout: timeout}
}

// Run executes the command and returns its exit code. A non-nil error means the
// process could not be started or was killed by ctx; the exit code is then -1.
// On cancellation the whole process group is killed, children included.
func (r *ScriptRunner) Run(ctx context.Context) (int, error) {
	if r.Command == "" {
		return -1, errors.New("no command configured")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	stdout := newLineWriter(log.Logger, "stdout")
	stderr := newLineWriter(log.Logger, "stderr")

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Dir = r.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start %s: %w", r.Command, err)
	}

	err := cmd.Wait()
	duration := time.Since(start)
	stdout.Flush()
	stderr.Flush()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("%s interrupted: %w", r.Command, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.As(err, &exitErr):
	case errors.Is(err, exec.ErrWaitDelay):
		log.Warn().
			Str("command", r.Command).
			Msg("Secondary ranking script left processes holding its output open")
	default:
		return -1, fmt.Errorf("failed to run %s: %w", r.Command, err)
	}

	code := cmd.ProcessState.ExitCode()
	log.Info().
		Str("command", r.Command).
		Strs("args", r.Args).
		Int("exit_code", code).
		Dur("duration", duration).
		Msg("Secondary ranking script finished")

	return code, nil
}

//go:build unix

package secondary

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts cmd in its own process group and makes ctx
// cancellation kill the group rather than only the direct child.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

//go:build !unix

package secondary

import "os/exec"

// killProcessGroup is a no-op here; WaitDelay still bounds Run.
func killProcessGroup(cmd *exec.Cmd) {}

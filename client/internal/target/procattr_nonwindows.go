//go:build !windows

package target

import (
	"os/exec"
	"syscall"
)

// setDetachedProcAttr starts the target in a new session so it outlives the
// agent.
func setDetachedProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

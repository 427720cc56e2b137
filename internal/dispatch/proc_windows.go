//go:build windows

package dispatch

import (
	"os/exec"
	"syscall"
)

// newProcAttr is a no-op on Windows; process-group kill isn't available,
// so timeout handling falls back to killing the direct child only.
func newProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

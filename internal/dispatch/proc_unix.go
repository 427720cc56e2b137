//go:build !windows

package dispatch

import (
	"os/exec"
	"syscall"
)

// newProcAttr puts the spawned shell in its own process group so that on
// timeout the whole group — including any children the shell spawned — can
// be killed in one shot, rather than leaking orphans.
func newProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills the entire process group rooted at cmd's process.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

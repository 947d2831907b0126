//go:build !windows

package sidecar

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcAttr places the backend in its own process group so the whole tree
// can be signalled at shutdown.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// terminateProcess sends SIGTERM to the backend process group, falling back
// to the single process when group signalling is not permitted.
func terminateProcess(pid int) error {
	return signalProcess(pid, syscall.SIGTERM)
}

// killProcess sends SIGKILL to the backend process group.
func killProcess(pid int) error {
	return signalProcess(pid, syscall.SIGKILL)
}

func signalProcess(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		// Fallback to signalling just the process.
		if err := syscall.Kill(pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
			return err
		}
	}
	return nil
}

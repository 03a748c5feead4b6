//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttrs puts the backend in its own process group so that the
// kill at shutdown also reaches anything the backend started.
func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcess sends SIGKILL to the backend's process group, falling back
// to the single process if the group cannot be signalled.
func killProcess(p *os.Process) error {
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("%w: process group %d: %v", ErrKillFailed, p.Pid, err)
	}
	if kerr := p.Kill(); kerr != nil {
		return fmt.Errorf("%w: pid %d: %v", ErrKillFailed, p.Pid, kerr)
	}
	return nil
}

//go:build windows

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
)

// setProcAttrs is a no-op; Windows has no process groups to join.
func setProcAttrs(cmd *exec.Cmd) {}

// killProcess terminates the backend with TerminateProcess.
func killProcess(p *os.Process) error {
	if err := p.Kill(); err != nil {
		return fmt.Errorf("%w: pid %d: %v", ErrKillFailed, p.Pid, err)
	}
	return nil
}

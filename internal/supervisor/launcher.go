package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Handle is a started backend process.
type Handle interface {
	// PID returns the OS process ID.
	PID() int

	// Kill asks the OS to terminate the process. It does not wait.
	Kill() error
}

// Launcher starts backend processes.
type Launcher interface {
	Launch(cmd Command) (Handle, error)
}

// ExecLauncher starts real OS processes with os/exec.
type ExecLauncher struct{}

// Launch checks the working directory and starts the process detached
// from our stdio. Failures are returned as *SpawnError.
func (ExecLauncher) Launch(c Command) (Handle, error) {
	spawnErr := func(reason string, err error) error {
		return &SpawnError{Executable: c.Executable, Dir: c.Dir, Reason: reason, Err: err}
	}

	info, err := os.Stat(c.Dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, spawnErr("working directory does not exist", err)
	case err != nil:
		return nil, spawnErr("working directory is not accessible", err)
	case !info.IsDir():
		return nil, spawnErr("working directory is not a directory", nil)
	}

	cmd := exec.Command(c.Executable, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	// Detached stdio; the backend's output is not ours to read
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	setProcAttrs(cmd)

	if err := cmd.Start(); err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, spawnErr(fmt.Sprintf("executable %q not found on PATH", c.Executable), err)
		case errors.Is(err, os.ErrPermission):
			return nil, spawnErr("permission denied", err)
		default:
			return nil, spawnErr(err.Error(), err)
		}
	}

	return &processHandle{proc: cmd.Process}, nil
}

type processHandle struct {
	proc *os.Process
}

func (h *processHandle) PID() int {
	return h.proc.Pid
}

func (h *processHandle) Kill() error {
	return killProcess(h.proc)
}

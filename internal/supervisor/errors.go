package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawnFailed is matched by every *SpawnError.
	ErrSpawnFailed = errors.New("failed to spawn backend")

	// ErrAlreadyStarted is returned by a second Spawn.
	ErrAlreadyStarted = errors.New("backend already started")

	// ErrKillFailed wraps signal errors at shutdown. It is only logged.
	ErrKillFailed = errors.New("failed to kill backend")
)

// SpawnError describes why the backend could not be created.
type SpawnError struct {
	Executable string
	Dir        string
	Reason     string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s in %s: %s", e.Executable, e.Dir, e.Reason)
}

// Unwrap exposes both ErrSpawnFailed and the underlying OS error.
func (e *SpawnError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSpawnFailed}
	}
	return []error{ErrSpawnFailed, e.Err}
}

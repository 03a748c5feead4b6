package supervisor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/glintlock/glintlock-desktop/internal/config"
	"github.com/glintlock/glintlock-desktop/internal/events"
	"github.com/glintlock/glintlock-desktop/internal/logging"
	"github.com/glintlock/glintlock-desktop/internal/portalloc"
)

// State represents the lifecycle state of the backend.
type State int

const (
	// StateNotStarted indicates Spawn has not succeeded yet.
	StateNotStarted State = iota
	// StateRunning indicates a backend process is owned.
	StateRunning
	// StateStopped indicates Shutdown ran. Terminal.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Supervisor owns one backend process and the port it was told to bind.
type Supervisor struct {
	port  portalloc.Port
	runID string

	launcher Launcher
	logger   *logging.Logger
	bus      *events.EventBus

	mu     sync.Mutex
	state  State
	handle Handle
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLauncher replaces the os/exec launcher.
func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) { s.launcher = l }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(s *Supervisor) { s.bus = bus }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Supervisor) { s.runID = id }
}

// New creates a Supervisor in StateNotStarted for port.
func New(port portalloc.Port, opts ...Option) *Supervisor {
	s := &Supervisor{
		port:     port,
		launcher: ExecLauncher{},
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.logger = s.logger.WithField("run", s.runID)
	return s
}

// CurrentPort returns the port the backend was instructed to bind.
func (s *Supervisor) CurrentPort() portalloc.Port {
	return s.port
}

// RunID identifies this application run in logs and events.
func (s *Supervisor) RunID() string {
	return s.runID
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the backend's process ID, or 0 when none is owned.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.PID()
}

// Spawn starts the backend. It succeeds at most once; any later call
// returns ErrAlreadyStarted without launching anything.
func (s *Supervisor) Spawn(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, s.state)
	}
	if s.port == 0 {
		return &SpawnError{Executable: cmd.Executable, Dir: cmd.Dir, Reason: "port 0 is not a valid backend port"}
	}

	s.logger.Debug().
		Str("executable", cmd.Executable).
		Strs("args", cmd.Args).
		Str("dir", cmd.Dir).
		Msg("Spawning backend")

	handle, err := s.launcher.Launch(cmd)
	if err != nil {
		var spawnErr *SpawnError
		if !errors.As(err, &spawnErr) {
			err = &SpawnError{Executable: cmd.Executable, Dir: cmd.Dir, Reason: err.Error(), Err: err}
		}
		s.logger.Error().Err(err).Msg("Backend spawn failed")
		return err
	}

	s.handle = handle
	s.state = StateRunning

	s.logger.Info().
		Uint16("port", uint16(s.port)).
		Int("pid", handle.PID()).
		Msg("Backend started")
	s.publish(events.EventBackendStarted, handle.PID(), "backend started", nil)
	return nil
}

// Shutdown kills the backend if one is running and moves to StateStopped.
// Kill failures are logged, never returned. Calling Shutdown again is a
// no-op.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStopped:
		return
	case StateNotStarted:
		s.state = StateStopped
		s.logger.Debug().Msg("Shutdown before spawn, nothing to stop")
		return
	}

	pid := s.handle.PID()
	if err := s.handle.Kill(); err != nil {
		if !errors.Is(err, ErrKillFailed) {
			err = fmt.Errorf("%w: %v", ErrKillFailed, err)
		}
		s.logger.Warn().Err(err).Int("pid", pid).Msg("Backend kill failed, ignoring")
	} else {
		s.logger.Info().Int("pid", pid).Msg("Backend stopped")
	}

	s.handle = nil
	s.state = StateStopped
	s.publish(events.EventBackendStopped, pid, "backend stopped", nil)
}

func (s *Supervisor) publish(eventType events.EventType, pid int, message string, err error) {
	if s.bus == nil {
		return
	}
	s.bus.PublishBackend(eventType, s.runID, uint16(s.port), pid, message, err)
}

// Bootstrap allocates a port and spawns the backend on it.
// On any error the returned Supervisor is nil.
func Bootstrap(cfg *config.AppConfig, alloc portalloc.Allocator, opts ...Option) (*Supervisor, error) {
	port, err := alloc.Allocate()
	if err != nil {
		return nil, err
	}

	s := New(port, opts...)
	if err := s.Spawn(ServeCommand(cfg, port)); err != nil {
		return nil, err
	}
	return s, nil
}

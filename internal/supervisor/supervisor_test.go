package supervisor

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glintlock/glintlock-desktop/internal/config"
	"github.com/glintlock/glintlock-desktop/internal/events"
	"github.com/glintlock/glintlock-desktop/internal/logging"
	"github.com/glintlock/glintlock-desktop/internal/portalloc"
)

type fakeHandle struct {
	mu      sync.Mutex
	pid     int
	kills   int
	killErr error
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kills++
	return h.killErr
}

func (h *fakeHandle) killCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kills
}

type fakeLauncher struct {
	mu        sync.Mutex
	launches  []Command
	handle    *fakeHandle
	launchErr error
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{handle: &fakeHandle{pid: 4242}}
}

func (l *fakeLauncher) Launch(cmd Command) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches = append(l.launches, cmd)
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return l.handle, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launches)
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := config.NewAppConfig()
	cfg.Backend.WorkingDir = t.TempDir()
	return cfg
}

func TestBootstrap_SpawnsWithServeArgs(t *testing.T) {
	launcher := newFakeLauncher()
	cfg := testConfig(t)

	port, err := portalloc.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	sup, err := Bootstrap(cfg, portalloc.Fixed{Port: port}, WithLauncher(launcher))
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if launcher.launchCount() != 1 {
		t.Fatalf("Expected exactly 1 launch, got %d", launcher.launchCount())
	}
	got := launcher.launches[0]
	if got.Executable != "opencode" {
		t.Errorf("Expected executable opencode, got %s", got.Executable)
	}
	wantArgs := []string{"serve", "--hostname", "127.0.0.1", "--port", port.String()}
	if strings.Join(got.Args, " ") != strings.Join(wantArgs, " ") {
		t.Errorf("Args = %v, want %v", got.Args, wantArgs)
	}
	if got.Dir != cfg.Backend.WorkingDir {
		t.Errorf("Dir = %s, want %s", got.Dir, cfg.Backend.WorkingDir)
	}

	if sup.PID() == 0 {
		t.Error("Expected a recorded process handle after spawn")
	}
	if sup.State() != StateRunning {
		t.Errorf("Expected state running, got %s", sup.State())
	}
	if sup.CurrentPort() != port {
		t.Errorf("CurrentPort() = %d, want %d", sup.CurrentPort(), port)
	}
}

func TestBootstrap_InvalidWorkingDir(t *testing.T) {
	cfg := config.NewAppConfig()
	cfg.Backend.WorkingDir = filepath.Join(t.TempDir(), "does-not-exist")

	sup, err := Bootstrap(cfg, portalloc.NewLoopbackAllocator(""))
	if err == nil {
		t.Fatal("Expected spawn failure for missing working directory")
	}
	if !errors.Is(err, ErrSpawnFailed) {
		t.Errorf("Expected ErrSpawnFailed, got %v", err)
	}
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Expected *SpawnError, got %T", err)
	}
	if !strings.Contains(spawnErr.Reason, "does not exist") {
		t.Errorf("Unexpected reason %q", spawnErr.Reason)
	}
	if sup != nil {
		t.Error("Failed bootstrap must not return a queryable supervisor")
	}
}

func TestBootstrap_WorkingDirIsFile(t *testing.T) {
	cfg := config.NewAppConfig()
	file := filepath.Join(t.TempDir(), "plain-file")
	if err := writeFile(file); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	cfg.Backend.WorkingDir = file

	_, err := Bootstrap(cfg, portalloc.NewLoopbackAllocator(""))
	if !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("Expected ErrSpawnFailed, got %v", err)
	}
}

func TestBootstrap_ExecutableNotFound(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Executable = "glintlock-no-such-binary-7f3a"

	sup, err := Bootstrap(cfg, portalloc.NewLoopbackAllocator(""))
	if !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("Expected ErrSpawnFailed, got %v", err)
	}
	if sup != nil {
		t.Error("Failed bootstrap must not return a supervisor")
	}
}

type failingAllocator struct{}

func (failingAllocator) Allocate() (portalloc.Port, error) {
	return 0, portalloc.ErrNoPortAvailable
}

func TestBootstrap_NoPortAvailable(t *testing.T) {
	launcher := newFakeLauncher()

	sup, err := Bootstrap(testConfig(t), failingAllocator{}, WithLauncher(launcher))
	if !errors.Is(err, portalloc.ErrNoPortAvailable) {
		t.Fatalf("Expected ErrNoPortAvailable, got %v", err)
	}
	if sup != nil {
		t.Error("Expected nil supervisor")
	}
	if launcher.launchCount() != 0 {
		t.Error("Nothing should be launched without a port")
	}
}

func TestSpawn_LauncherErrorWrapped(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.launchErr = errors.New("resource temporarily unavailable")

	sup := New(4096, WithLauncher(launcher))
	err := sup.Spawn(Command{Executable: "opencode", Dir: "/tmp"})
	if !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("Expected ErrSpawnFailed, got %v", err)
	}
	if sup.State() != StateNotStarted {
		t.Errorf("Failed spawn should leave state not_started, got %s", sup.State())
	}
	if sup.PID() != 0 {
		t.Error("Failed spawn should not record a handle")
	}
}

func TestSpawn_ZeroPortRejected(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(0, WithLauncher(launcher))

	if err := sup.Spawn(Command{Executable: "opencode"}); !errors.Is(err, ErrSpawnFailed) {
		t.Fatalf("Expected ErrSpawnFailed, got %v", err)
	}
	if launcher.launchCount() != 0 {
		t.Error("Launcher should not be called with port 0")
	}
}

func TestSpawn_SecondCallRejected(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(4096, WithLauncher(launcher))

	if err := sup.Spawn(Command{Executable: "opencode"}); err != nil {
		t.Fatalf("First spawn failed: %v", err)
	}
	if err := sup.Spawn(Command{Executable: "opencode"}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
	if launcher.launchCount() != 1 {
		t.Errorf("Expected 1 launch, got %d", launcher.launchCount())
	}
}

func TestShutdown_KillsOnce(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(4096, WithLauncher(launcher))
	if err := sup.Spawn(Command{Executable: "opencode"}); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	sup.Shutdown()

	if kills := launcher.handle.killCount(); kills != 1 {
		t.Errorf("Expected 1 kill, got %d", kills)
	}
	if sup.PID() != 0 {
		t.Error("Handle should be cleared after shutdown")
	}
	if sup.State() != StateStopped {
		t.Errorf("Expected state stopped, got %s", sup.State())
	}

	// Second shutdown is a no-op
	sup.Shutdown()
	if kills := launcher.handle.killCount(); kills != 1 {
		t.Errorf("Second shutdown sent another kill (total %d)", kills)
	}
}

func TestShutdown_BeforeSpawn(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(4096, WithLauncher(launcher))

	sup.Shutdown()

	if kills := launcher.handle.killCount(); kills != 0 {
		t.Errorf("Expected no kill, got %d", kills)
	}
	if sup.State() != StateStopped {
		t.Errorf("Expected state stopped, got %s", sup.State())
	}
	if err := sup.Spawn(Command{Executable: "opencode"}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Spawn after shutdown should fail, got %v", err)
	}
}

func TestShutdown_KillErrorIsLoggedNotRaised(t *testing.T) {
	var buf bytes.Buffer
	launcher := newFakeLauncher()
	launcher.handle.killErr = errors.New("os: process already finished")

	sup := New(4096, WithLauncher(launcher), WithLogger(logging.NewWriterLogger(&buf)))
	if err := sup.Spawn(Command{Executable: "opencode"}); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	sup.Shutdown()

	if sup.State() != StateStopped {
		t.Errorf("Expected state stopped after failed kill, got %s", sup.State())
	}
	if !strings.Contains(buf.String(), "kill failed") {
		t.Errorf("Expected kill failure in log, got %q", buf.String())
	}
}

func TestCurrentPort_StableUnderConcurrency(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(5151, WithLauncher(launcher))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if p := sup.CurrentPort(); p != 5151 {
					t.Errorf("CurrentPort() = %d, want 5151", p)
					return
				}
			}
		}()
	}

	if err := sup.Spawn(Command{Executable: "opencode"}); err != nil {
		t.Errorf("Spawn failed: %v", err)
	}
	sup.Shutdown()
	wg.Wait()

	if sup.CurrentPort() != 5151 {
		t.Errorf("Port changed after shutdown: %d", sup.CurrentPort())
	}
}

func TestConcurrentShutdown_SingleKill(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(4096, WithLauncher(launcher))
	if err := sup.Spawn(Command{Executable: "opencode"}); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sup.Shutdown()
		}()
	}
	wg.Wait()

	if kills := launcher.handle.killCount(); kills != 1 {
		t.Errorf("Expected exactly 1 kill, got %d", kills)
	}
}

func TestLifecycleEvents(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()

	sup := New(4096, WithLauncher(newFakeLauncher()), WithEventBus(bus), WithRunID("run-test"))
	if err := sup.Spawn(Command{Executable: "opencode"}); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	sup.Shutdown()

	want := []events.EventType{events.EventBackendStarted, events.EventBackendStopped}
	for _, wantType := range want {
		select {
		case e := <-ch:
			be, ok := e.(*events.BackendEvent)
			if !ok {
				t.Fatalf("Expected *BackendEvent, got %T", e)
			}
			if be.Type() != wantType {
				t.Errorf("Event type = %s, want %s", be.Type(), wantType)
			}
			if be.RunID != "run-test" || be.Port != 4096 || be.PID != 4242 {
				t.Errorf("Unexpected event payload %+v", be)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for %s", wantType)
		}
	}
}

func TestServeCommand(t *testing.T) {
	cfg := config.NewAppConfig()
	cfg.Backend.WorkingDir = "/srv/plugin"
	cfg.Backend.ExtraArgs = "--print-logs"
	cfg.Env = map[string]string{"OPENCODE_CONFIG": "/srv/plugin/opencode.json"}

	cmd := ServeCommand(cfg, 4096)

	wantArgs := "serve --hostname 127.0.0.1 --port 4096 --print-logs"
	if got := strings.Join(cmd.Args, " "); got != wantArgs {
		t.Errorf("Args = %q, want %q", got, wantArgs)
	}
	if cmd.Dir != "/srv/plugin" {
		t.Errorf("Dir = %s, want /srv/plugin", cmd.Dir)
	}
	if len(cmd.Env) != 1 || cmd.Env[0] != "OPENCODE_CONFIG=/srv/plugin/opencode.json" {
		t.Errorf("Env = %v", cmd.Env)
	}
}

func TestServeCommand_HostnamePinned(t *testing.T) {
	for _, host := range []string{"::1", "127.0.0.2", ""} {
		cfg := config.NewAppConfig()
		cfg.Backend.Hostname = host

		cmd := ServeCommand(cfg, 4096)

		want := "serve --hostname 127.0.0.1 --port 4096"
		if got := strings.Join(cmd.Args, " "); got != want {
			t.Errorf("hostname %q: Args = %q, want %q", host, got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateNotStarted: "not_started",
		StateRunning:    "running",
		StateStopped:    "stopped",
		State(9):        "unknown(9)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestNew_GeneratesRunID(t *testing.T) {
	a := New(1)
	b := New(1)
	if a.RunID() == "" || a.RunID() == b.RunID() {
		t.Errorf("Expected distinct run IDs, got %q and %q", a.RunID(), b.RunID())
	}
}

// Package wailsapp hosts the Glintlock window and ties its lifecycle to the
// backend supervisor. The window is a web view over the embedded frontend;
// the frontend asks GetOpencodePort for the backend address.
package wailsapp

import (
	"context"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/pflag"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/glintlock/glintlock-desktop/internal/config"
	"github.com/glintlock/glintlock-desktop/internal/constants"
	"github.com/glintlock/glintlock-desktop/internal/events"
	"github.com/glintlock/glintlock-desktop/internal/logging"
	"github.com/glintlock/glintlock-desktop/internal/portalloc"
	"github.com/glintlock/glintlock-desktop/internal/readiness"
	"github.com/glintlock/glintlock-desktop/internal/supervisor"
	"github.com/glintlock/glintlock-desktop/internal/version"
)

// Assets holds the embedded frontend files, passed in from main package.
var Assets embed.FS

var (
	// wailsLogger is the package-level logger for Wails mode
	wailsLogger = logging.NewNopLogger()
)

// Readiness states reported to the frontend.
const (
	readinessDisabled    = "disabled"
	readinessPending     = "pending"
	readinessReady       = "ready"
	readinessUnreachable = "unreachable"
)

// App is the main Wails application struct.
// All public methods are exposed to the frontend as callable functions.
type App struct {
	ctx    context.Context
	config *config.AppConfig
	sup    *supervisor.Supervisor
	bus    *events.EventBus

	// Event bridge for forwarding EventBus events to frontend
	eventBridge *EventBridge
	emit        emitFunc

	probeCancel context.CancelFunc
	probeDone   chan struct{}

	mu        sync.Mutex
	readiness string
}

// NewApp creates the application around an already running supervisor.
func NewApp(cfg *config.AppConfig, sup *supervisor.Supervisor, bus *events.EventBus) (*App, error) {
	if sup == nil {
		return nil, ErrNoSupervisor
	}
	state := readinessDisabled
	if cfg.UI.WaitReady {
		state = readinessPending
	}
	return &App{
		config:    cfg,
		sup:       sup,
		bus:       bus,
		readiness: state,
	}, nil
}

// startup is called when the app starts. The context is saved
// so we can call the Wails runtime methods.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	if a.bus != nil {
		if a.emit != nil {
			a.eventBridge = newEventBridge(ctx, a.bus, a.emit)
		} else {
			a.eventBridge = NewEventBridge(ctx, a.bus)
		}
		if err := a.eventBridge.Start(); err != nil {
			wailsLogger.Error().Err(err).Msg("Failed to start event bridge")
		}
	}

	if a.config.UI.WaitReady {
		a.startReadinessProbe(ctx)
	}

	wailsLogger.Info().
		Uint16("port", uint16(a.sup.CurrentPort())).
		Msg("Wails application started")
}

// startReadinessProbe polls the backend in the background. The window and
// the port query never wait on it.
func (a *App) startReadinessProbe(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	a.probeCancel = cancel
	a.probeDone = make(chan struct{})

	opts := readiness.OptionsForTimeout(a.config.ReadyTimeout())
	opts.Logger = wailsLogger

	go func() {
		defer close(a.probeDone)
		err := readiness.Announce(ctx, a.bus, a.sup.RunID(), a.config.Backend.Hostname,
			uint16(a.sup.CurrentPort()), a.sup.PID(), opts)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			wailsLogger.Warn().Err(err).Msg("Backend did not respond")
			a.setReadiness(readinessUnreachable)
			a.publishLog(events.WarnLevel, "Backend did not respond", err)
			return
		}
		wailsLogger.Info().Msg("Backend is ready")
		a.setReadiness(readinessReady)
		a.publishLog(events.InfoLevel, "Backend is ready", nil)
	}()
}

func (a *App) publishLog(level events.LogLevel, message string, err error) {
	if a.bus != nil {
		a.bus.PublishLog(level, message, err)
	}
}

func (a *App) setReadiness(state string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.readiness = state
}

func (a *App) readinessState() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readiness
}

// domReady is called after the frontend DOM is ready.
func (a *App) domReady(ctx context.Context) {
	wailsLogger.Debug().Msg("Frontend DOM ready")
}

// beforeClose is called when the window close is requested.
// Return true to prevent closing.
func (a *App) beforeClose(ctx context.Context) bool {
	return false
}

// shutdown is called once the window is gone. The backend is killed
// before anything else so a slow teardown cannot leak it.
func (a *App) shutdown(ctx context.Context) {
	wailsLogger.Info().Msg("Wails application shutting down")

	a.sup.Shutdown()

	if a.probeCancel != nil {
		a.probeCancel()
		<-a.probeDone
	}

	if a.eventBridge != nil {
		a.eventBridge.Stop()
	}
}

// guiFlags picks the flags GUI mode honours out of the raw arguments.
// Anything else, including --gui itself, is ignored.
func guiFlags(args []string) (configPath string, debug bool) {
	fs := pflag.NewFlagSet("gui", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.StringVar(&configPath, "config", "", "")
	fs.BoolVar(&debug, "debug", false, "")
	fs.Bool("gui", false, "")
	_ = fs.Parse(args)
	return configPath, debug
}

// Run launches the Wails GUI application. The backend is spawned before
// the window is created; if that fails, no window is shown.
func Run(args []string) error {
	configPath, debug := guiFlags(args)

	wailsLogger = logging.NewLogger("gui")
	logging.ConfigureLevel(debug)

	logPath := config.LogFilePath()
	if closer, err := wailsLogger.TeeToFile(logPath); err != nil {
		wailsLogger.Warn().Err(err).Msg("File logging disabled")
	} else {
		defer closer.Close()
		wailsLogger.Debug().Str("path", logPath).Msg("File logging started")
	}

	// Check for display on Linux
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("%w: DISPLAY and WAYLAND_DISPLAY are not set.\n"+
				"Use '%s serve' for headless mode", ErrNoDisplay, constants.BinaryName)
		}
	}

	cfg, err := loadConfiguration(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	defer bus.Close()

	alloc, err := portalloc.ForConfig(cfg.Backend.Hostname, cfg.Backend.Port)
	if err != nil {
		return err
	}

	sup, err := supervisor.Bootstrap(cfg, alloc,
		supervisor.WithLogger(wailsLogger),
		supervisor.WithEventBus(bus))
	if err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}
	// Covers wails.Run failing before OnShutdown; a second call is a no-op.
	defer sup.Shutdown()

	app, err := NewApp(cfg, sup, bus)
	if err != nil {
		return err
	}

	windowTitle := fmt.Sprintf("%s %s", constants.AppName, version.Version)

	err = wails.Run(&options.App{
		Title:     windowTitle,
		Width:     1280,
		Height:    800,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: Assets,
		},
		BackgroundColour: &options.RGBA{R: 248, G: 250, B: 252, A: 1},
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   constants.AppName,
				Message: fmt.Sprintf("Version %s", version.Version),
			},
		},
		Windows: &windows.Options{
			WebviewBrowserPath: getWebView2BrowserPath(),
		},
		Linux: &linux.Options{
			ProgramName: constants.BinaryName,
		},
	})

	if err != nil {
		return fmt.Errorf("wails application error: %w", err)
	}

	return nil
}

// loadConfiguration reads the given file, or the default location when
// path is empty.
func loadConfiguration(path string) (*config.AppConfig, error) {
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	wailsLogger.Info().Str("path", path).Str("working_dir", cfg.ResolvedWorkingDir()).Msg("Configuration loaded")
	return cfg, nil
}

// getWebView2BrowserPath returns the path to a bundled WebView2 Fixed Version Runtime.
// Returns empty string to use system-installed WebView2.
func getWebView2BrowserPath() string {
	if runtime.GOOS != "windows" {
		return ""
	}

	exePath, err := os.Executable()
	if err != nil {
		return ""
	}

	webview2Dir := filepath.Join(filepath.Dir(exePath), "webview2")
	if info, err := os.Stat(webview2Dir); err == nil && info.IsDir() {
		if _, err := os.Stat(filepath.Join(webview2Dir, "msedgewebview2.exe")); err == nil {
			return webview2Dir
		}
	}

	return ""
}

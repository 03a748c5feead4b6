// Package constants holds application-wide names and tuning values.
package constants

import "time"

// Application identity
const (
	// AppName is the display name used for window titles and log lines.
	AppName = "Glintlock"

	// BinaryName is the executable name of this application.
	BinaryName = "glintlock"

	// ConfigFileName is the INI file holding backend and UI settings.
	ConfigFileName = "glintlock.conf"

	// LogFileName is the GUI-mode log file inside the log directory.
	LogFileName = "glintlock.log"
)

// Backend process defaults
const (
	// DefaultBackendExecutable is resolved on PATH when spawning the backend.
	DefaultBackendExecutable = "opencode"

	// DefaultBackendHostname is the only interface the backend listens on.
	// The backend must never be reachable from other machines.
	DefaultBackendHostname = "127.0.0.1"

	// DefaultBackendDirName is the working directory name under the user's
	// home directory when none is configured.
	DefaultBackendDirName = "glintlock-opencode"

	// BackendServeSubcommand is the first argument passed to the backend.
	BackendServeSubcommand = "serve"
)

// Readiness probe tuning. Matches the frontend's connect loop:
// one attempt per second for thirty seconds.
const (
	DefaultReadyAttempts = 30
	DefaultReadyInterval = 1 * time.Second
	DefaultReadyTimeout  = 30 * time.Second

	// ReadyRequestTimeout bounds a single probe request.
	ReadyRequestTimeout = 2 * time.Second
)

// Event bus sizing
const (
	// EventBusDefaultBuffer - default buffer size for event channels.
	// Lifecycle events are rare; 64 covers every event one run can emit.
	EventBusDefaultBuffer = 64

	// EventBusMaxBuffer - upper bound accepted by NewEventBus.
	EventBusMaxBuffer = 1024
)

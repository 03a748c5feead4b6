package supervisor

import (
	"github.com/glintlock/glintlock-desktop/internal/config"
	"github.com/glintlock/glintlock-desktop/internal/constants"
	"github.com/glintlock/glintlock-desktop/internal/portalloc"
)

// Command is everything needed to start the backend.
type Command struct {
	// Executable is looked up on PATH unless it contains a path separator.
	Executable string

	// Args excludes the executable itself.
	Args []string

	// Dir is the working directory. It must exist.
	Dir string

	// Env is appended to the inherited environment.
	Env []string
}

// ServeArgs returns the fixed backend arguments:
// serve --hostname <host> --port <port>.
func ServeArgs(hostname string, port portalloc.Port) []string {
	return []string{
		constants.BackendServeSubcommand,
		"--hostname", hostname,
		"--port", port.String(),
	}
}

// ServeCommand builds the backend command for port from configuration.
// The backend always listens on DefaultBackendHostname whatever the
// config says.
func ServeCommand(cfg *config.AppConfig, port portalloc.Port) Command {
	args := ServeArgs(constants.DefaultBackendHostname, port)
	args = append(args, cfg.ExtraArgList()...)

	return Command{
		Executable: cfg.Backend.Executable,
		Args:       args,
		Dir:        cfg.ResolvedWorkingDir(),
		Env:        cfg.EnvList(),
	}
}

package cli

import (
	"slices"
	"strings"
)

// cliPatterns are arguments that always mean CLI mode.
var cliPatterns = []string{
	// Subcommands
	"serve", "port", "config", "version", "completion", "help",
	// Flags
	"--help", "-h", "--version", "-v", "--verbose",
}

// guiOnlyFlags may accompany a GUI launch without forcing CLI mode.
var guiOnlyFlags = []string{"--config", "-c", "--debug"}

// IsCLIMode decides between CLI and GUI from the arguments (without the
// program name) and the environment.
//
// CLI mode when:
//   - --cli is present
//   - a subcommand or help/version flag is present
//   - unknown arguments are present
//   - there is no display on Linux
//
// GUI mode when:
//   - --gui is present
//   - there are no arguments, or only --config/--debug, and a display is available
func IsCLIMode(args []string, goos string, getenv func(string) string) bool {
	if slices.Contains(args, "--cli") {
		return true
	}
	if slices.Contains(args, "--gui") {
		return false
	}

	for _, arg := range args {
		if slices.Contains(cliPatterns, arg) {
			return true
		}
	}

	if !onlyGUIFlags(args) {
		// Unknown arguments: let the CLI print help or an error
		return true
	}

	if goos == "linux" && getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == "" {
		return true
	}
	return false
}

func onlyGUIFlags(args []string) bool {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, _, hasValue := strings.Cut(arg, "=")
		if !slices.Contains(guiOnlyFlags, name) {
			return false
		}
		if (name == "--config" || name == "-c") && !hasValue {
			i++ // skip the value
		}
	}
	return true
}

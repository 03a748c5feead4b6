// Glintlock - desktop shell for a private opencode backend
//
// - No args + display available → GUI mode
// - No args + no display → CLI help
// - --gui → GUI mode
// - --cli → CLI mode (force)
// - CLI subcommands/flags → CLI mode
//
// Build with: wails build (for all platforms)
package main

import (
	"embed"
	"fmt"
	"os"
	"runtime"

	"github.com/glintlock/glintlock-desktop/internal/cli"
	"github.com/glintlock/glintlock-desktop/internal/wailsapp"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if cli.IsCLIMode(os.Args[1:], runtime.GOOS, os.Getenv) {
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	// Wails uses its own webview input handling; ibus is unnecessary.
	if runtime.GOOS == "linux" && os.Getenv("GTK_IM_MODULE") == "" {
		os.Setenv("GTK_IM_MODULE", "none")
	}
	wailsapp.Assets = assets
	if err := wailsapp.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package cli provides the command-line interface for glintlock.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glintlock/glintlock-desktop/internal/config"
	"github.com/glintlock/glintlock-desktop/internal/constants"
	"github.com/glintlock/glintlock-desktop/internal/logging"
	"github.com/glintlock/glintlock-desktop/internal/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	debug   bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.BinaryName,
		Short: constants.AppName + " - desktop shell for the opencode backend",
		Long: constants.AppName + ` ` + version.Version + ` - Built: ` + version.BuildTime + `
Desktop shell that runs a private opencode server on a free loopback port
and shows its web UI in a native window.

GUI Mode (default with a display, or --gui):
  Starts the backend, opens the window, stops the backend when the
  window closes.

CLI Mode (--cli, or any subcommand):
  Headless operation and configuration management.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			logging.ConfigureLevel(verbose || debug)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	// Mode switches are consumed by main before cobra runs
	rootCmd.PersistentFlags().Bool("cli", false, "Force CLI mode")
	rootCmd.PersistentFlags().Bool("gui", false, "Force GUI mode")
	_ = rootCmd.PersistentFlags().MarkHidden("cli")
	_ = rootCmd.PersistentFlags().MarkHidden("gui")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)
	cancelFunc()

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPortCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// configPath resolves --config, falling back to the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile), nil
	}
	return config.DefaultConfigPath()
}

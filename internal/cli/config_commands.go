// Package cli provides configuration management commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glintlock/glintlock-desktop/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage glintlock configuration",
		Long: `Configuration management commands for glintlock.

Commands:
  init  - Write a configuration file
  show  - Display effective configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var (
		force      bool
		workingDir string
		executable string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with defaults",
		Long: `Write glintlock.conf with default values, optionally overriding the
backend working directory and executable.

Use --force to overwrite an existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at: %s\n", path)
					fmt.Fprintln(cmd.OutOrStdout(), "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg := config.NewAppConfig()
			if workingDir != "" {
				cfg.Backend.WorkingDir = workingDir
			}
			if executable != "" {
				cfg.Backend.Executable = executable
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if err := config.SaveAppConfig(cfg, path); err != nil {
				return err
			}

			GetLogger().Debug().Str("path", path).Msg("Configuration written")
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", path)
			if _, err := os.Stat(cfg.ResolvedWorkingDir()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Note: working directory %s does not exist yet\n", cfg.ResolvedWorkingDir())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "Backend working directory")
	cmd.Flags().StringVar(&executable, "executable", "", "Backend executable")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long:  `Show the configuration after applying environment overrides.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadAppConfig(path)
			if err != nil {
				return err
			}
			if err := cfg.ApplyEnvOverrides(); err != nil {
				return err
			}

			printConfig(cmd.OutOrStdout(), path, cfg)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nWarning: %v\n", err)
			}
			return nil
		},
	}
}

func printConfig(w io.Writer, path string, cfg *config.AppConfig) {
	port := "auto"
	if cfg.Backend.Port != 0 {
		port = fmt.Sprintf("%d", cfg.Backend.Port)
	}

	fmt.Fprintf(w, "Configuration file: %s\n\n", path)
	fmt.Fprintln(w, "[backend]")
	fmt.Fprintf(w, "  Executable:  %s\n", cfg.Backend.Executable)
	fmt.Fprintf(w, "  Working dir: %s\n", cfg.ResolvedWorkingDir())
	fmt.Fprintf(w, "  Hostname:    %s\n", cfg.Backend.Hostname)
	fmt.Fprintf(w, "  Port:        %s\n", port)
	if extra := cfg.ExtraArgList(); len(extra) > 0 {
		fmt.Fprintf(w, "  Extra args:  %s\n", strings.Join(extra, " "))
	}
	if env := cfg.EnvList(); len(env) > 0 {
		fmt.Fprintln(w, "\n[env]")
		for _, kv := range env {
			fmt.Fprintf(w, "  %s\n", kv)
		}
	}
	fmt.Fprintln(w, "\n[ui]")
	fmt.Fprintf(w, "  Wait ready:    %t\n", cfg.UI.WaitReady)
	fmt.Fprintf(w, "  Ready timeout: %s\n", cfg.ReadyTimeout())
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/glintlock/glintlock-desktop/internal/config"
	"github.com/glintlock/glintlock-desktop/internal/events"
	"github.com/glintlock/glintlock-desktop/internal/logging"
	"github.com/glintlock/glintlock-desktop/internal/portalloc"
	"github.com/glintlock/glintlock-desktop/internal/progress"
	"github.com/glintlock/glintlock-desktop/internal/readiness"
	"github.com/glintlock/glintlock-desktop/internal/supervisor"
)

// newServeCmd creates the 'serve' command.
func newServeCmd() *cobra.Command {
	var (
		port         int
		waitReady    bool
		readyTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend without a window until interrupted",
		Long: `Start the opencode backend exactly as the GUI does, print its URL and
keep it running until Ctrl+C or SIGTERM, then kill it.

Examples:
  glintlock serve
  glintlock serve --port 4096 --wait-ready=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Backend.Port = port
			}
			if flags.Changed("wait-ready") {
				cfg.UI.WaitReady = waitReady
			}
			if flags.Changed("ready-timeout") {
				cfg.UI.ReadyTimeoutSecs = int(readyTimeout / time.Second)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runServe(GetContext(), cfg, cmd.OutOrStdout(), progress.ForTerminal(os.Stderr), GetLogger())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Pin the backend port (0 = pick a free one)")
	cmd.Flags().BoolVar(&waitReady, "wait-ready", true, "Wait for the backend to answer HTTP before idling")
	cmd.Flags().DurationVar(&readyTimeout, "ready-timeout", 30*time.Second, "How long to wait for the backend")

	return cmd
}

// runServe starts the backend, reports its URL on out and blocks until ctx
// is cancelled. A backend that never answers is reported but not fatal.
func runServe(ctx context.Context, cfg *config.AppConfig, out io.Writer, reporter progress.Reporter, log *logging.Logger, supOpts ...supervisor.Option) error {
	alloc, err := portalloc.ForConfig(cfg.Backend.Hostname, cfg.Backend.Port)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(0)
	defer bus.Close()

	opts := append([]supervisor.Option{
		supervisor.WithLogger(log),
		supervisor.WithEventBus(bus),
	}, supOpts...)

	sup, err := supervisor.Bootstrap(cfg, alloc, opts...)
	if err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}
	defer sup.Shutdown()

	port := uint16(sup.CurrentPort())
	fmt.Fprintln(out, readiness.BaseURL(cfg.Backend.Hostname, port))

	if cfg.UI.WaitReady {
		probeOpts := readiness.OptionsForTimeout(cfg.ReadyTimeout())
		probeOpts.Logger = log
		probeOpts.OnAttempt = func(n int) { reporter.Update(int64(n)) }

		reporter.Start(int64(probeOpts.Attempts), "Waiting for backend")
		err := readiness.Announce(ctx, bus, sup.RunID(), cfg.Backend.Hostname, port, sup.PID(), probeOpts)
		switch {
		case ctx.Err() != nil:
			reporter.Finish()
			return nil
		case err != nil:
			reporter.Error(err)
			log.Warn().Err(err).Msg("Backend did not respond, leaving it running")
		default:
			reporter.SetDescription("Backend ready")
			reporter.Finish()
			log.Info().Uint16("port", port).Msg("Backend is ready")
		}
	}

	<-ctx.Done()
	log.Info().Int("pid", sup.PID()).Msg("Stopping backend")
	return nil
}

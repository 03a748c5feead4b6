package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glintlock/glintlock-desktop/internal/constants"
	"github.com/glintlock/glintlock-desktop/internal/portalloc"
)

// newPortCmd creates the 'port' command.
func newPortCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "port",
		Short: "Print a free loopback TCP port",
		Long: `Ask the OS for a currently free TCP port on the loopback interface and
print it. The port is released before the command exits, so another
process may take it before you use it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := portalloc.NewLoopbackAllocator(host).Allocate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), port)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", constants.DefaultBackendHostname, "Interface to probe")

	return cmd
}

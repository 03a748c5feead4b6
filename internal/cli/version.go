package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/glintlock/glintlock-desktop/internal/constants"
	"github.com/glintlock/glintlock-desktop/internal/version"
)

// newVersionCmd creates the 'version' command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", constants.BinaryName, version.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Built:    %s\n", version.BuildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(cmd.OutOrStdout(), "  Go:       %s\n", runtime.Version())
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/transport"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build and scanner versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "easy-svg-guard %s (scanner %s)\n", transport.Version, scan.Version)
		},
	}
}

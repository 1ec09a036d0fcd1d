package cli

import (
	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/gateway"
)

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [config]",
		Short: "Serve the scanning tools over MCP (stdio or HTTP)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.configPath = args[0]
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer svc.Close()
			return gateway.New(svc, a.logger).Run(cmd.Context())
		},
	}
}

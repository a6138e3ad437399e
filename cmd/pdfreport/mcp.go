package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/pdfreport/mcp"
)

func newMCPCmd() *cobra.Command {
	var publish bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve report tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol
			cfg, logger, err := setup(os.Stderr)
			if err != nil {
				return err
			}
			opts, err := cfg.RendererOptions(logger)
			if err != nil {
				return err
			}

			ts := mcp.Toolset{BaseOptions: opts}
			if publish {
				store, err := cfg.OpenStore(cmd.Context())
				if err != nil {
					return err
				}
				defer closeStore(store, logger)
				ts.Store = store
			}

			s := mcp.NewServer(logger)
			mcp.RegisterDefaultTools(s, ts)
			mcp.RegisterDefaultResources(s)
			return s.Run(logger.WithContext(cmd.Context()))
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish rendered reports to the configured store and return URLs")
	return cmd
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/pdfreport/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP report API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(os.Stdout)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			opts, err := cfg.RendererOptions(logger)
			if err != nil {
				return err
			}
			store, err := cfg.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store, logger)

			logger.Info().Str("store", cfg.Store.Kind).Msg("store ready")

			api := server.NewWebAPI(logger, server.Config{
				Addr:            cfg.Server.Addr,
				RenderTimeout:   cfg.Server.RenderTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				MaxBodyBytes:    cfg.Server.MaxBodyBytes,
				Dependencies: server.Dependencies{
					Store:       store,
					BaseOptions: opts,
				},
			})
			return api.Start()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}

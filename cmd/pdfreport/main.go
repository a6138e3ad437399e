// Command pdfreport renders paginated PDF reports from JSON templates or
// markdown, and serves the renderer over HTTP and MCP.
//
//	pdfreport render weekly.json -o weekly.pdf
//	pdfreport render --markdown notes.md --title "Notes" -o notes.pdf
//	pdfreport dashboard data.json -o dashboard.pdf
//	pdfreport serve --config pdfreport.yaml
//	pdfreport mcp
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lvillar/pdfreport/config"
	"github.com/lvillar/pdfreport/internal/logging"
)

var (
	cfgPath  string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pdfreport",
		Short:         "Render paginated PDF reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newRenderCmd(), newDashboardCmd(), newServeCmd(), newMCPCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pdfreport: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and builds a logger writing to w.
func setup(w io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, w)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func closeStore(store any, logger zerolog.Logger) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing store")
		}
	}
}

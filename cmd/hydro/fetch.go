package main

import (
	"fmt"

	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/couchcryptid/swiss-hydro-service/internal/observability"
	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Run a single refresh cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.ValidateFeeds(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger(cfg)
			rs := newRefreshStack(cfg, logger, observability.NewMetrics())
			defer rs.close(logger)

			return rs.pipeline.RunOnce(cmd.Context())
		},
	}
}

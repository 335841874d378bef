package main

import (
	"fmt"

	"github.com/couchcryptid/swiss-hydro-service/internal/adapter/filestore"
	"github.com/couchcryptid/swiss-hydro-service/internal/config"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Exit non-zero when a raw feed file is missing or stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store := filestore.New(cfg.DataDir)
			if err := store.CheckFreshness(clockwork.NewRealClock(), cfg.StaleThreshold, cfg.FeedNames()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "feeds fresh (threshold %s)\n", cfg.StaleThreshold)
			return nil
		},
	}
}

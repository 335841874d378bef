package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hydro",
		Short: "Swiss hydrology station data service",
		Long: `Periodically retrieves the BAFU hydroweb station feeds, normalizes them
into station_list.json and station_data.json, and serves them over a REST API.

Configuration is read from the environment (and an optional .env file).`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newFetchCmd(), newCheckCmd(), newValidateCmd())
	return root
}

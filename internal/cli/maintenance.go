package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wikidatago/pkg/config"
	"wikidatago/pkg/db/maintenance"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Prune old cached responses and ingest runs",
	Long: `Delete cached HTTP responses older than --cache-age (default: cache.ttl) and
all but the --keep-runs most recent ingest runs (default: db.keep_runs).`,
	Args: cobra.NoArgs,
	Run:  runMaintenance,
}

var (
	maintCacheAge string
	maintKeepRuns int
)

func init() {
	maintenanceCmd.Flags().StringVar(&maintCacheAge, "cache-age", "", "Maximum age of cached responses, e.g. 12h, 7d or 2w")
	maintenanceCmd.Flags().IntVar(&maintKeepRuns, "keep-runs", 0, "Number of recent ingest runs to keep")
}

func runMaintenance(cmd *cobra.Command, _ []string) {
	c := initContext()
	defer c.Close()

	opts := maintenance.Options{
		CacheAge: time.Duration(c.Config.Cache.TTL),
		KeepRuns: c.Config.DB.KeepRuns,
	}
	if maintCacheAge != "" {
		d, err := config.ParseDuration(maintCacheAge)
		if err != nil {
			exitError("invalid --cache-age: %v", err)
		}
		opts.CacheAge = d
	}
	if maintKeepRuns > 0 {
		opts.KeepRuns = maintKeepRuns
	}

	rep, err := maintenance.Run(context.Background(), c.DB, opts)
	if err != nil {
		exitError("%v", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached responses, %d runs, %d issues\n", rep.CacheEntries, rep.Runs, rep.Issues)
}

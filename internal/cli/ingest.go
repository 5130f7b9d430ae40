package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wikidatago/pkg/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]...",
	Short: "Parse many records concurrently and persist their issues",
	Long: `Parse entity files or previously stored entities with a pool of workers. Every rejected
record and every lenient-mode issue is saved under a new run id.`,
	Example: `  wdparse ingest items/*.json
  wdparse ingest --workers 8 items/*.json
  wdparse ingest --stored --mode strict`,
	Run: runIngest,
}

var (
	ingestStored      bool
	ingestWorkers     int
	ingestStopOnError bool
	ingestNoStore     bool
)

func init() {
	ingestCmd.Flags().BoolVar(&ingestStored, "stored", false, "Re-parse every entity in the local store")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "Concurrent records (default from config)")
	ingestCmd.Flags().BoolVar(&ingestStopOnError, "stop-on-error", false, "Abort on the first rejected record")
	ingestCmd.Flags().BoolVar(&ingestNoStore, "no-store", false, "Do not save accepted records' raw JSON")
}

func runIngest(cmd *cobra.Command, args []string) {
	if len(args) == 0 && !ingestStored {
		exitError("nothing to ingest: pass paths or --stored")
	}

	c := initContext()
	defer c.Close()

	opts := ingest.Options{
		Workers:     c.Config.Ingest.Workers,
		StopOnError: c.Config.Ingest.StopOnError || ingestStopOnError,
		StoreRaw:    c.Config.Ingest.StoreRaw && !ingestNoStore && !ingestStored,
	}
	if ingestWorkers > 0 {
		opts.Workers = ingestWorkers
	}

	var sources []ingest.Source
	if ingestStored {
		sources = append(sources, ingest.Stored(c.Store))
	}
	if len(args) > 0 {
		sources = append(sources, ingest.Files(args...))
	}

	ctx, stop := signalContext(context.Background())
	defer stop()

	runner := ingest.NewRunner(c.parser(), c.Store, c.Store, c.Tracker, opts)
	run, err := runner.Run(ctx, ingest.Concat(sources...))
	if run == nil {
		exitError("%v", err)
	}

	out := cmd.OutOrStdout()
	printRun(out, run)
	if counts, cerr := c.Store.CountIssuesByKind(context.Background(), run.ID); cerr == nil && len(counts) > 0 {
		printKindCounts(out, counts)
	}
	printStats(cmd.ErrOrStderr(), c.Tracker)
	fmt.Fprintf(out, "run id: %s\n", run.ID)

	if err != nil {
		exitError("%v", err)
	}
	if run.Failed > 0 {
		exit(1)
	}
}

// signalContext is cancelled on SIGINT/SIGTERM so a long ingest still
// records its run before exiting.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"wikidatago/pkg/ingest"
	"wikidatago/pkg/wikidata"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>...",
	Short: "Fetch entities from Wikidata, store and parse them",
	Long: `Download each entity from Special:EntityData (through the response cache),
parse it in the configured mode, save the raw JSON and print a summary.
Decode issues are recorded as an ingest run; see "wdparse issues".`,
	Example: `  wdparse fetch Q42 P31
  wdparse fetch --mode strict Q64
  wdparse fetch --batch Q1 Q2 Q3 Q4`,
	Args: cobra.MinimumNArgs(1),
	Run:  runFetch,
}

var (
	fetchClaims bool
	fetchBatch  bool
)

func init() {
	fetchCmd.Flags().BoolVar(&fetchClaims, "claims", false, "List every claim in the summary")
	fetchCmd.Flags().BoolVar(&fetchBatch, "batch", false, "Fetch through wbgetentities, up to 50 ids per request")
}

func runFetch(cmd *cobra.Command, args []string) {
	ids := parseIDs(args)

	c := initContext()
	defer c.Close()

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	runner := ingest.NewRunner(c.parser(), c.Store, c.Store, c.Tracker, ingest.Options{
		Workers:  c.Config.Ingest.Workers,
		StoreRaw: true,
		OnEntity: func(_ string, e *wikidata.Entity) {
			mu.Lock()
			defer mu.Unlock()
			printEntity(out, e)
			if fetchClaims {
				printClaims(out, e)
			}
		},
	})

	ctx, stop := signalContext(context.Background())
	defer stop()

	f := c.fetcher()
	src := ingest.IDs(f, ids...)
	if fetchBatch {
		src = ingest.Batch(f, ids...)
	}
	run, err := runner.Run(ctx, src)
	if run == nil {
		exitError("%v", err)
	}
	if run.Issues > 0 || err != nil {
		issues, ierr := c.Store.GetIssues(context.Background(), run.ID)
		if ierr == nil {
			printStoredIssues(cmd.ErrOrStderr(), issues)
		}
	}
	printStats(cmd.ErrOrStderr(), c.Tracker)
	if err != nil {
		exitError("%v", err)
	}
	if run.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d rejected (run %s)\n", run.Failed, run.Records, shortID(run.ID))
		exit(1)
	}
}

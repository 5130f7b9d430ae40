package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var issuesCmd = &cobra.Command{
	Use:   "issues [run-id]",
	Short: "Show ingest runs and the issues they recorded",
	Long: `Without arguments, list recent ingest runs. With a run id (or a unique
prefix of one), print that run's issues grouped by kind.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runIssues,
}

var issuesLimit int

func init() {
	issuesCmd.Flags().IntVarP(&issuesLimit, "n", "n", 20, "Number of runs to list")
}

func runIssues(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	runs, err := c.Store.ListRuns(ctx, issuesLimit)
	if err != nil {
		exitError("failed to list runs: %v", err)
	}

	if len(args) == 0 {
		if len(runs) == 0 {
			fmt.Fprintln(out, "No ingest runs yet")
			return
		}
		for _, r := range runs {
			printRun(out, r)
		}
		return
	}

	runID := args[0]
	run, err := c.Store.GetRun(ctx, runID)
	if err != nil {
		exitError("%v", err)
	}
	if run == nil {
		// Accept the short id printed by run listings.
		var matches []string
		for _, r := range runs {
			if strings.HasPrefix(r.ID, runID) {
				matches = append(matches, r.ID)
			}
		}
		if len(matches) != 1 {
			exitError("no unique run matches %q", runID)
		}
		if run, err = c.Store.GetRun(ctx, matches[0]); err != nil || run == nil {
			exitError("failed to load run %s: %v", matches[0], err)
		}
	}

	printRun(out, run)
	counts, err := c.Store.CountIssuesByKind(ctx, run.ID)
	if err != nil {
		exitError("%v", err)
	}
	printKindCounts(out, counts)

	issues, err := c.Store.GetIssues(ctx, run.ID)
	if err != nil {
		exitError("%v", err)
	}
	if len(issues) > 0 {
		fmt.Fprintln(out)
		printStoredIssues(out, issues)
	}
}

func printKindCounts(w io.Writer, counts map[string]int) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	// Most frequent first, then by name.
	slices.SortFunc(kinds, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	for _, k := range kinds {
		fmt.Fprintln(w, kindLine(k, counts[k]))
	}
}

func kindLine(kind string, n int) string {
	return fmt.Sprintf("  %-24s %d", strings.TrimSpace(kind), n)
}

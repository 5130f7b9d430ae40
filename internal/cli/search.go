package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search Wikidata items by label",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearch,
}

var (
	searchLang  string
	searchLimit int
)

func init() {
	searchCmd.Flags().StringVarP(&searchLang, "lang", "l", "en", "Search language")
	searchCmd.Flags().IntVarP(&searchLimit, "n", "n", 5, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	hits, err := c.fetcher().SearchEntities(context.Background(), strings.Join(args, " "), searchLang, searchLimit)
	if err != nil {
		exitError("search failed: %v", err)
	}

	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintln(out, "No matches")
		return
	}
	for _, h := range hits {
		idColor.Fprintf(out, "%-10s", h.ID)
		fmt.Fprintf(out, " %s", h.Label)
		if h.Description != "" {
			dimColor.Fprintf(out, " - %s", h.Description)
		}
		fmt.Fprintln(out)
	}
}

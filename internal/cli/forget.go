package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <id>...",
	Short: "Remove stored raw entities",
	Long: `Delete the raw JSON saved for each id, so "ingest --stored" skips it.
The response cache is left alone; use "maintenance" to prune it.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runForget,
}

func runForget(cmd *cobra.Command, args []string) {
	ids := parseIDs(args)

	c := initContext()
	defer c.Close()

	ctx := context.Background()
	removed := 0
	for _, id := range ids {
		rec, err := c.Store.GetEntity(ctx, id)
		if err != nil {
			exitError("read %s: %v", id, err)
		}
		if rec == nil {
			warnColor.Fprintf(cmd.ErrOrStderr(), "%s is not stored\n", id)
			continue
		}
		if err := c.Store.DeleteEntity(ctx, id); err != nil {
			exitError("delete %s: %v", id, err)
		}
		removed++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d\n", removed, len(ids))
}

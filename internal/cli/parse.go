package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"wikidatago/pkg/wikidata"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse entity JSON from a file or stdin",
	Long: `Parse one entity record, or every entity of an {"entities":{...}} envelope,
and print a summary. In lenient mode malformed parts are dropped and listed as
warnings; in strict mode the first one rejects the record.

The exit status is 1 when any record was rejected.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runParse,
}

var (
	parseFormat string
	parseClaims bool
)

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "summary", "Output format: summary or json")
	parseCmd.Flags().BoolVar(&parseClaims, "claims", false, "List every claim in the summary")
}

func runParse(cmd *cobra.Command, args []string) {
	c := initConfig()
	defer c.Close()

	if parseFormat != "summary" && parseFormat != "json" {
		exitError("unknown format %q", parseFormat)
	}

	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		exitError("failed to read input: %v", err)
	}

	results, err := c.parser().ParseAll(data)
	if err != nil {
		exitError("%v", err)
	}
	if rejected := renderResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), results, parseFormat, parseClaims); rejected > 0 {
		exit(1)
	}
}

// renderResults prints each result and returns how many were rejected.
// Entities go to out; warnings and rejections go to errOut.
func renderResults(out, errOut io.Writer, results []wikidata.Result, format string, claims bool) int {
	rejected := 0
	for _, res := range results {
		if res.Err != nil {
			rejected++
			errColor.Fprint(errOut, "rejected: ")
			fmt.Fprintln(errOut, res.Err)
			continue
		}

		switch format {
		case "json":
			b, err := wikidata.EncodeEntity(res.Entity)
			if err != nil {
				errColor.Fprint(errOut, "encode: ")
				fmt.Fprintln(errOut, err)
				rejected++
				continue
			}
			fmt.Fprintln(out, string(b))
		default:
			printEntity(out, res.Entity)
			if claims {
				printClaims(out, res.Entity)
			}
		}
		printDecodeIssues(errOut, res.Issues)
	}
	return rejected
}

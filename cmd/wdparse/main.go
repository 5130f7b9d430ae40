// Command wdparse parses and validates Wikidata entity JSON.
package main

import (
	"os"

	"wikidatago/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

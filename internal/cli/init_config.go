package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wikidatago/pkg/config"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default config file",
	Long:  `Write the default configuration to --config. An existing file is left untouched.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := config.GenerateDefault(cfgPath); err != nil {
			exitError("failed to generate config: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", cfgPath)
	},
}

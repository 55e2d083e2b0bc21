// internal/cli/config.go
package recallbench

import (
	"fmt"

	"github.com/mwiater/recallbench/internal/appconfig"
	"github.com/spf13/cobra"
)

// configCmd represents the 'config' command group.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Group commands for inspecting configuration",
}

// showConfigCmd implements 'config show', which displays the merged configuration.
var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show config settings",
	Long:  `Show config settings after the config file, RECALLBENCH_* environment variables and flags have been merged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		raw, _ := cmd.Flags().GetBool("raw")
		appconfig.ShowConfig(cmd.OutOrStdout(), *cfg, raw)
		return nil
	},
}

func init() {
	showConfigCmd.Flags().Bool("raw", false, "also dump the full configuration struct")
	configCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(configCmd)
}

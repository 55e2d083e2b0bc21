// internal/cli/compare.go
package recallbench

import (
	"github.com/mwiater/recallbench/internal/results"
	"github.com/spf13/cobra"
)

// compareCmd implements 'compare <a.json> <b.json>'.
var compareCmd = &cobra.Command{
	Use:   "compare <a.json> <b.json>",
	Short: "Compare two saved benchmark results",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := results.Load(args[0])
		if err != nil {
			return err
		}
		b, err := results.Load(args[1])
		if err != nil {
			return err
		}
		c := results.Compare(a, b)

		out := cmd.OutOrStdout()
		if markdown, _ := cmd.Flags().GetBool("markdown"); markdown {
			_, err := out.Write([]byte(results.CompareMarkdown(c)))
			return err
		}
		printComparison(out, a, b, c)
		return nil
	},
}

func init() {
	compareCmd.Flags().Bool("markdown", false, "print the comparison as a Markdown table")
	rootCmd.AddCommand(compareCmd)
}

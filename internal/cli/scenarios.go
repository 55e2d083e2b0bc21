// internal/cli/scenarios.go
package recallbench

import (
	"context"
	"fmt"
	"io"

	"github.com/mwiater/recallbench/internal/appconfig"
	"github.com/mwiater/recallbench/internal/scenario"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scenariosCmd implements 'scenarios <dir>', which replays every scenario
// file under dir and reports pass/fail with failure modes.
var scenariosCmd = &cobra.Command{
	Use:   "scenarios <dir>",
	Short: "Run a directory of YAML recall scenarios",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenarios(cmd.Context(), cmd.OutOrStdout(), GetConfig(), args[0])
	},
}

func init() {
	flags := scenariosCmd.Flags()
	flags.Bool("isolate", false, "clear the provider before each scenario")
	flags.Int("negative-max-chars", 0, "retrieved length still accepted by negative scenarios (default 30)")
	flags.Int("scenario-limit", 0, "memories requested per scenario query (default 10)")

	_ = viper.BindPFlag("scenario.isolate", flags.Lookup("isolate"))
	_ = viper.BindPFlag("scenario.negativeMaxChars", flags.Lookup("negative-max-chars"))
	_ = viper.BindPFlag("scenario.recallLimit", flags.Lookup("scenario-limit"))

	rootCmd.AddCommand(scenariosCmd)
}

func runScenarios(ctx context.Context, out io.Writer, cfg *appconfig.Config, dir string) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	scenarios, broken, err := scenario.LoadDir(dir)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios found in %s", dir)
	}
	fmt.Fprintf(out, "%s %d scenarios from %s\n", titleStyle.Render("Loaded"), len(scenarios), dir)

	provider, release, err := openProvider(cfg)
	if err != nil {
		return err
	}
	defer release()

	ev := scenario.Evaluator{
		Provider:   provider,
		Thresholds: scenario.Thresholds{NegativeMaxChars: cfg.NegativeMaxChars()},
		Limit:      cfg.ScenarioRecallLimit(),
		Isolate:    cfg.Scenario.Isolate,
	}
	suite, err := ev.RunSuite(ctx, scenarios, newProgress(out, "scenarios"))
	if err != nil {
		return err
	}

	jsonPath, mdPath, err := scenario.Save(cfg.OutputPath(), suite)
	printSuite(out, suite, broken)
	printArtifacts(out, jsonPath, mdPath)
	if err != nil {
		return err
	}
	return checkThreshold(suite.PassRate, cfg.Run.FailUnder, "pass rate")
}

// internal/cli/run.go
package recallbench

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwiater/recallbench/internal/appconfig"
	"github.com/mwiater/recallbench/internal/checkers"
	"github.com/mwiater/recallbench/internal/datasets"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/results"
	"github.com/mwiater/recallbench/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runCmd implements 'run <dataset>', which ingests a local dataset file into
// the provider and scores one recall per question.
var runCmd = &cobra.Command{
	Use:       "run <dataset>",
	Short:     "Run a dataset benchmark against the memory provider",
	Long:      `Run ingests every conversation of a local dataset file into the provider, issues one recall per question and writes JSON and Markdown results. Supported datasets: ` + strings.Join(datasets.Names(), ", ") + `.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: datasets.Names(),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")
		return runDataset(cmd.Context(), cmd.OutOrStdout(), GetConfig(), args[0], data)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.String("data", "", "path to the dataset JSON or JSON Lines file")
	flags.Int("sample", 0, "stratified sample size (0 runs every question)")
	flags.Int64("seed", 0, "sampling seed (default 42)")
	flags.String("checker", "", "answer checker: substring, phrase, fuzzy, abstention (default per dataset)")
	flags.Int("batch-size", 0, "chunks per batch store call (default 20)")
	flags.Int("concurrency", 0, "recalls in flight (default 10)")
	flags.Int("limit", 0, "memories requested per question (default 10)")
	_ = runCmd.MarkFlagRequired("data")

	_ = viper.BindPFlag("run.sample", flags.Lookup("sample"))
	_ = viper.BindPFlag("run.seed", flags.Lookup("seed"))
	_ = viper.BindPFlag("run.checker", flags.Lookup("checker"))
	_ = viper.BindPFlag("run.batchSize", flags.Lookup("batch-size"))
	_ = viper.BindPFlag("run.concurrency", flags.Lookup("concurrency"))
	_ = viper.BindPFlag("run.recallLimit", flags.Lookup("limit"))

	rootCmd.AddCommand(runCmd)
}

func runDataset(ctx context.Context, out io.Writer, cfg *appconfig.Config, name, dataPath string) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	ds, err := datasets.Load(name, dataPath, datasets.Options{Sample: cfg.Run.Sample, Seed: cfg.Run.Seed})
	if err != nil {
		return err
	}

	method := checkers.Method(cfg.Run.Checker)
	if method == "" {
		method = ds.Checker
	}
	checker, err := checkers.New(method, checkers.Options{
		FuzzyThreshold:     cfg.FuzzyThreshold(),
		AbstentionMaxChars: cfg.AbstentionMaxChars(),
	})
	if err != nil {
		return err
	}

	provider, release, err := openProvider(cfg)
	if err != nil {
		return err
	}
	defer release()

	if err := provider.Clear(ctx); err != nil {
		logging.L().Warn("could not clear provider before run", zap.Error(err))
	}

	fmt.Fprintf(out, "%s %s: %d conversations, %d questions",
		titleStyle.Render("Dataset"), ds.Name, len(ds.Conversations), len(ds.Questions))
	if ds.Warnings > 0 {
		fmt.Fprintf(out, " (%s)", warnLabel(fmt.Sprintf("%d record warnings", ds.Warnings)))
	}
	fmt.Fprintln(out)

	metadata := map[string]any{
		"dataset_file":     dataPath,
		"dataset_warnings": ds.Warnings,
	}
	if instance := instanceOf(provider); instance != "" {
		metadata["instance"] = instance
	}
	sample := cfg.Run.Sample
	if ds.Sampled {
		// questions are already a stratified subset
		metadata["sample_size"] = sample
		sample = 0
	}

	res, err := runner.RunBenchmark(ctx, runner.Options{
		Name:           ds.Name,
		Provider:       provider,
		Checker:        checker,
		Conversations:  ds.Conversations,
		Questions:      ds.Questions,
		Sample:         sample,
		Seed:           cfg.Run.Seed,
		BatchSize:      cfg.BatchSize(),
		Concurrency:    cfg.Concurrency(),
		Limit:          cfg.RecallLimit(),
		Metadata:       metadata,
		IngestProgress: newProgress(out, "ingest"),
		QueryProgress:  newProgress(out, "query"),
	})
	if err != nil {
		return err
	}

	jsonPath, mdPath, err := results.Save(cfg.OutputPath(), res)
	printBenchmark(out, res)
	printArtifacts(out, jsonPath, mdPath)
	if err != nil {
		return err
	}
	return checkThreshold(res.OverallAccuracy, cfg.Run.FailUnder, "accuracy")
}

// internal/cli/root.go
package recallbench

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwiater/recallbench/internal/appconfig"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/providerfactory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"

	// newProvider is swapped in tests.
	newProvider = providerfactory.NewProvider
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "recallbench",
	Short:        "recallbench runs recall benchmarks and scenario suites for memory services",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		appconfig.Configure(v)
		if err := appconfig.ReadFile(v, cfgFile); err != nil {
			return err
		}

		cfg, err := appconfig.FromViper(v)
		if err != nil {
			return err
		}
		currentConfig = &cfg

		if err := logging.Init(cfg.LogFile, cfg.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it until
// completion or interrupt. This is called by main.main().
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default recallbench.yaml if present)")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.String("log-level", "", "log level: debug, info, warn, error (default info)")
	flags.Bool("metrics", false, "record provider metrics and serve /metrics during the run")
	flags.String("metrics-addr", "", "listen address for /metrics (default :9464)")
	flags.String("provider", "", "provider adapter: tribal or memory (default tribal)")
	flags.String("provider-url", "", "memory service base URL (default $TRIBALMEMORY_URL or http://127.0.0.1:18790)")
	flags.String("instance", "", "provider instance id (default: generated per run)")
	flags.StringP("output", "o", "", "directory for result artifacts (default results)")
	flags.Float64("fail-under", 0, "exit non-zero when accuracy or pass rate is at or below this fraction (0 disables)")

	_ = viper.BindPFlag("logFile", flags.Lookup("log-file"))
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("metrics.enabled", flags.Lookup("metrics"))
	_ = viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	_ = viper.BindPFlag("provider.type", flags.Lookup("provider"))
	_ = viper.BindPFlag("provider.url", flags.Lookup("provider-url"))
	_ = viper.BindPFlag("provider.instance", flags.Lookup("instance"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("run.failUnder", flags.Lookup("fail-under"))
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

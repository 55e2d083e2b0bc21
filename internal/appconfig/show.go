// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the effective configuration. With raw set, the whole struct is
// dumped as well.
func ShowConfig(out io.Writer, cfg Config, raw bool) {
	if cfg.ConfigPath == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", cfg.ConfigPath)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Provider:          %s\n", cfg.ProviderType())
	fmt.Fprintf(out, "  Provider URL:      %s\n", cfg.ProviderURL())
	if cfg.Provider.Instance != "" {
		fmt.Fprintf(out, "  Instance:          %s\n", cfg.Provider.Instance)
	} else {
		fmt.Fprintln(out, "  Instance:          (generated per run)")
	}
	fmt.Fprintf(out, "  Request Timeout:   %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Max Retries:       %d\n", cfg.MaxRetries())
	fmt.Fprintf(out, "  Max Backoff:       %s\n", cfg.MaxBackoff())
	fmt.Fprintf(out, "  Batch Size:        %d\n", cfg.BatchSize())
	fmt.Fprintf(out, "  Concurrency:       %d\n", cfg.Concurrency())
	fmt.Fprintf(out, "  Recall Limit:      %d\n", cfg.RecallLimit())
	fmt.Fprintf(out, "  Sample:            %d\n", cfg.Run.Sample)
	fmt.Fprintf(out, "  Seed:              %d\n", cfg.Run.Seed)
	fmt.Fprintf(out, "  Fuzzy Threshold:   %.2f\n", cfg.FuzzyThreshold())
	fmt.Fprintf(out, "  Output Dir:        %s\n", cfg.OutputPath())
	fmt.Fprintf(out, "  Metrics:           %v (%s)\n", cfg.Metrics.Enabled, cfg.MetricsAddr())

	if raw {
		fmt.Fprintln(out)
		_, _ = pp.Fprintln(out, cfg)
	}
}

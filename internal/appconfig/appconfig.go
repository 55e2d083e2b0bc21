// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting recallbench configuration.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the config file looked up when --config is not given.
	DefaultConfigPath = "recallbench.yaml"
	// DefaultProviderURL is the memory service address used when neither config nor env sets one.
	DefaultProviderURL = "http://127.0.0.1:18790"
	// EnvPrefix prefixes every environment override, e.g. RECALLBENCH_RUN_SAMPLE.
	EnvPrefix = "RECALLBENCH"
	// ProviderURLEnv names the environment variable consulted for the memory service address.
	ProviderURLEnv = "TRIBALMEMORY_URL"

	defaultRequestTimeout     = 120 * time.Second
	defaultMaxRetries         = 3
	defaultMaxBackoff         = 30 * time.Second
	defaultBatchSize          = 20
	defaultConcurrency        = 10
	defaultRecallLimit        = 10
	defaultSeed               = 42
	defaultFuzzyThreshold     = 0.75
	defaultAbstentionMaxChars = 50
	defaultNegativeMaxChars   = 30
	defaultOutputDir          = "results"
	defaultLogLevel           = "info"
	defaultMetricsAddr        = ":9464"
	defaultProviderType       = ProviderTribal
)

// Provider adapter names accepted in provider.type.
const (
	ProviderTribal = "tribal"
	ProviderMemory = "memory"
)

// Config represents the top-level application configuration.
type Config struct {
	Provider   ProviderConfig `mapstructure:"provider" json:"provider"`
	Run        RunConfig      `mapstructure:"run" json:"run"`
	Scenario   ScenarioConfig `mapstructure:"scenario" json:"scenario"`
	Metrics    MetricsConfig  `mapstructure:"metrics" json:"metrics"`
	OutputDir  string         `mapstructure:"output" json:"output,omitempty"`
	LogFile    string         `mapstructure:"logFile" json:"logFile,omitempty"`
	LogLevel   string         `mapstructure:"logLevel" json:"logLevel,omitempty"`
	ConfigPath string         `mapstructure:"-" json:"-"`
}

// ProviderConfig describes how to reach the memory service under test.
type ProviderConfig struct {
	// Type selects the adapter: tribal (default) or memory.
	Type              string `mapstructure:"type" json:"type,omitempty"`
	URL               string `mapstructure:"url" json:"url,omitempty"`
	Instance          string `mapstructure:"instance" json:"instance,omitempty"`
	TimeoutSeconds    int    `mapstructure:"timeout" json:"timeout,omitempty"`
	MaxRetries        int    `mapstructure:"maxRetries" json:"maxRetries,omitempty"`
	MaxBackoffSeconds int    `mapstructure:"maxBackoff" json:"maxBackoff,omitempty"`
}

// RunConfig holds the dataset benchmark knobs.
type RunConfig struct {
	BatchSize          int     `mapstructure:"batchSize" json:"batchSize,omitempty"`
	Concurrency        int     `mapstructure:"concurrency" json:"concurrency,omitempty"`
	RecallLimit        int     `mapstructure:"recallLimit" json:"recallLimit,omitempty"`
	Sample             int     `mapstructure:"sample" json:"sample,omitempty"`
	Seed               int64   `mapstructure:"seed" json:"seed"`
	Checker            string  `mapstructure:"checker" json:"checker,omitempty"`
	FuzzyThreshold     float64 `mapstructure:"fuzzyThreshold" json:"fuzzyThreshold,omitempty"`
	AbstentionMaxChars int     `mapstructure:"abstentionMaxChars" json:"abstentionMaxChars,omitempty"`
	FailUnder          float64 `mapstructure:"failUnder" json:"failUnder,omitempty"`
}

// ScenarioConfig holds the scenario suite knobs.
type ScenarioConfig struct {
	NegativeMaxChars int  `mapstructure:"negativeMaxChars" json:"negativeMaxChars,omitempty"`
	RecallLimit      int  `mapstructure:"recallLimit" json:"recallLimit,omitempty"`
	Isolate          bool `mapstructure:"isolate" json:"isolate"`
}

// MetricsConfig controls the prometheus decorator and its scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr,omitempty"`
}

// SetDefaults registers every default on v so that file, env and flag layers override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider.type", defaultProviderType)
	v.SetDefault("provider.url", "")
	v.SetDefault("provider.instance", "")
	v.SetDefault("provider.timeout", int(defaultRequestTimeout.Seconds()))
	v.SetDefault("provider.maxRetries", defaultMaxRetries)
	v.SetDefault("provider.maxBackoff", int(defaultMaxBackoff.Seconds()))
	v.SetDefault("run.batchSize", defaultBatchSize)
	v.SetDefault("run.concurrency", defaultConcurrency)
	v.SetDefault("run.recallLimit", defaultRecallLimit)
	v.SetDefault("run.seed", defaultSeed)
	v.SetDefault("run.fuzzyThreshold", defaultFuzzyThreshold)
	v.SetDefault("run.abstentionMaxChars", defaultAbstentionMaxChars)
	v.SetDefault("run.sample", 0)
	v.SetDefault("run.checker", "")
	v.SetDefault("run.failUnder", 0.0)
	v.SetDefault("scenario.negativeMaxChars", defaultNegativeMaxChars)
	v.SetDefault("scenario.recallLimit", defaultRecallLimit)
	v.SetDefault("scenario.isolate", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", defaultMetricsAddr)
	v.SetDefault("output", defaultOutputDir)
	v.SetDefault("logLevel", defaultLogLevel)
	v.SetDefault("logFile", "")
}

// Configure registers defaults and the RECALLBENCH_* environment layer on v.
func Configure(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from path layered over defaults and RECALLBENCH_* env vars.
// A missing file is an error only when path was given explicitly.
func Load(path string) (Config, error) {
	v := viper.New()
	Configure(v)
	if err := ReadFile(v, path); err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// ReadFile points v at path (or DefaultConfigPath) and reads it. A missing
// default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return fmt.Errorf("could not read config file %q: %w", path, err)
		}
	}
	return nil
}

// FromViper materializes and validates the merged configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		if _, err := os.Stat(used); err == nil {
			cfg.ConfigPath = used
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no run could work with.
func (c Config) Validate() error {
	var problems []string
	if c.Run.BatchSize < 0 {
		problems = append(problems, "run.batchSize must not be negative")
	}
	if c.Run.Concurrency < 0 {
		problems = append(problems, "run.concurrency must not be negative")
	}
	if c.Run.Sample < 0 {
		problems = append(problems, "run.sample must not be negative")
	}
	if c.Run.FuzzyThreshold < 0 || c.Run.FuzzyThreshold > 1 {
		problems = append(problems, "run.fuzzyThreshold must be within [0,1]")
	}
	if c.Run.FailUnder < 0 || c.Run.FailUnder > 1 {
		problems = append(problems, "run.failUnder must be within [0,1]")
	}
	switch c.ProviderType() {
	case ProviderTribal, ProviderMemory:
	default:
		problems = append(problems, fmt.Sprintf("provider.type %q is not one of tribal, memory", c.Provider.Type))
	}
	if c.Provider.MaxRetries < 0 {
		problems = append(problems, "provider.maxRetries must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ProviderType returns the normalized adapter name.
func (c Config) ProviderType() string {
	switch t := strings.ToLower(strings.TrimSpace(c.Provider.Type)); t {
	case "":
		return defaultProviderType
	case "tribalmemory":
		return ProviderTribal
	default:
		return t
	}
}

// ProviderURL returns the memory service base URL with env and default fallbacks.
func (c Config) ProviderURL() string {
	if u := strings.TrimSpace(c.Provider.URL); u != "" {
		return strings.TrimRight(u, "/")
	}
	if u := strings.TrimSpace(os.Getenv(ProviderURLEnv)); u != "" {
		return strings.TrimRight(u, "/")
	}
	return DefaultProviderURL
}

// RequestTimeout returns the per-call timeout, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.Provider.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// MaxRetries returns the number of attempts made per provider call.
func (c Config) MaxRetries() int {
	if c.Provider.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return c.Provider.MaxRetries
}

// MaxBackoff returns the ceiling applied to retry waits.
func (c Config) MaxBackoff() time.Duration {
	if c.Provider.MaxBackoffSeconds <= 0 {
		return defaultMaxBackoff
	}
	return time.Duration(c.Provider.MaxBackoffSeconds) * time.Second
}

func (c Config) BatchSize() int {
	if c.Run.BatchSize <= 0 {
		return defaultBatchSize
	}
	return c.Run.BatchSize
}

func (c Config) Concurrency() int {
	if c.Run.Concurrency <= 0 {
		return defaultConcurrency
	}
	return c.Run.Concurrency
}

func (c Config) RecallLimit() int {
	if c.Run.RecallLimit <= 0 {
		return defaultRecallLimit
	}
	return c.Run.RecallLimit
}

// FuzzyThreshold returns the similarity cutoff for the fuzzy checker.
func (c Config) FuzzyThreshold() float64 {
	if c.Run.FuzzyThreshold <= 0 {
		return defaultFuzzyThreshold
	}
	return c.Run.FuzzyThreshold
}

// AbstentionMaxChars returns the length under which retrieved text counts as "nothing relevant".
func (c Config) AbstentionMaxChars() int {
	if c.Run.AbstentionMaxChars <= 0 {
		return defaultAbstentionMaxChars
	}
	return c.Run.AbstentionMaxChars
}

// NegativeMaxChars returns the length under which a negative scenario still passes.
func (c Config) NegativeMaxChars() int {
	if c.Scenario.NegativeMaxChars <= 0 {
		return defaultNegativeMaxChars
	}
	return c.Scenario.NegativeMaxChars
}

func (c Config) ScenarioRecallLimit() int {
	if c.Scenario.RecallLimit <= 0 {
		return defaultRecallLimit
	}
	return c.Scenario.RecallLimit
}

// OutputPath returns the directory that receives result artifacts.
func (c Config) OutputPath() string {
	if dir := strings.TrimSpace(c.OutputDir); dir != "" {
		return dir
	}
	return defaultOutputDir
}

func (c Config) MetricsAddr() string {
	if addr := strings.TrimSpace(c.Metrics.Addr); addr != "" {
		return addr
	}
	return defaultMetricsAddr
}

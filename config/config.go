// Package config loads codexr settings from defaults, an optional codexr.yaml,
// CODEXR_* environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aMonteSl/codexr-mcp/engine"
	"github.com/aMonteSl/codexr-mcp/ignore"
	"github.com/aMonteSl/codexr-mcp/model"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Scan modes.
const (
	ModeShallow = "shallow"
	ModeDeep    = "deep"
)

const (
	envPrefix      = "CODEXR"
	configName     = "codexr"
	configFileType = "yaml"
)

// Config is the full set of codexr settings.
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	State    StateConfig    `mapstructure:"state"`
	Log      LogConfig      `mapstructure:"log"`
}

type ScanConfig struct {
	Mode        string   `mapstructure:"mode"`
	MaxDepth    int      `mapstructure:"max_depth"`
	Exclude     []string `mapstructure:"exclude"`
	MaxFileSize int64    `mapstructure:"max_file_size"`
	Gitignore   bool     `mapstructure:"gitignore"`
}

type WatchConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Debounce       time.Duration `mapstructure:"debounce"`
	ResyncInterval time.Duration `mapstructure:"resync_interval"`
}

type AnalysisConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	Command       []string      `mapstructure:"command"` // empty selects the built-in analyzer
	FailurePolicy string        `mapstructure:"failure_policy"`
	RateLimit     float64       `mapstructure:"rate_limit"` // external analyzer launches per second
	Timeout       time.Duration `mapstructure:"timeout"`
}

type StateConfig struct {
	Dir     string `mapstructure:"dir"` // empty selects the user cache directory
	Persist bool   `mapstructure:"persist"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Scan: ScanConfig{
			Mode:        ModeDeep,
			MaxFileSize: ignore.DefaultMaxFileSizeBytes,
			Gitignore:   true,
		},
		Watch: WatchConfig{
			Enabled:        true,
			Debounce:       2 * time.Second,
			ResyncInterval: 5 * time.Minute,
		},
		Analysis: AnalysisConfig{
			Concurrency:   engine.DefaultConcurrency,
			FailurePolicy: string(engine.FailureOmit),
			RateLimit:     20,
			Timeout:       30 * time.Second,
		},
		State: StateConfig{Persist: true},
		Log:   LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("scan.mode", d.Scan.Mode)
	v.SetDefault("scan.max_depth", d.Scan.MaxDepth)
	v.SetDefault("scan.exclude", d.Scan.Exclude)
	v.SetDefault("scan.max_file_size", d.Scan.MaxFileSize)
	v.SetDefault("scan.gitignore", d.Scan.Gitignore)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.resync_interval", d.Watch.ResyncInterval)
	v.SetDefault("analysis.concurrency", d.Analysis.Concurrency)
	v.SetDefault("analysis.command", d.Analysis.Command)
	v.SetDefault("analysis.failure_policy", d.Analysis.FailurePolicy)
	v.SetDefault("analysis.rate_limit", d.Analysis.RateLimit)
	v.SetDefault("analysis.timeout", d.Analysis.Timeout)
	v.SetDefault("state.dir", d.State.Dir)
	v.SetDefault("state.persist", d.State.Persist)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// flagKeys maps command-line flag names to the settings they override.
var flagKeys = map[string]string{
	"mode":            "scan.mode",
	"max-depth":       "scan.max_depth",
	"exclude":         "scan.exclude",
	"max-file-size":   "scan.max_file_size",
	"gitignore":       "scan.gitignore",
	"auto":            "watch.enabled",
	"debounce":        "watch.debounce",
	"resync-interval": "watch.resync_interval",
	"concurrency":     "analysis.concurrency",
	"analyzer":        "analysis.command",
	"failure-policy":  "analysis.failure_policy",
	"rate-limit":      "analysis.rate_limit",
	"timeout":         "analysis.timeout",
	"state-dir":       "state.dir",
	"persist":         "state.persist",
	"log-level":       "log.level",
	"log-file":        "log.file",
}

// LoadOptions says where to look for settings.
type LoadOptions struct {
	// File is an explicit config file; it must exist when set.
	File string
	// SearchDirs are searched for codexr.yaml when File is empty.
	SearchDirs []string
	// Flags overrides settings for flags the user actually set.
	Flags *pflag.FlagSet
}

// Load builds a Config and validates it.
func Load(options LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if options.File != "" {
		v.SetConfigFile(options.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", options.File, err)
		}
	} else if len(options.SearchDirs) > 0 {
		v.SetConfigName(configName)
		v.SetConfigType(configFileType)
		for _, dir := range options.SearchDirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	if options.Flags != nil {
		if err := bindFlags(v, options.Flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(flag *pflag.Flag) {
		key, ok := flagKeys[flag.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, flag); err != nil {
			bindErr = fmt.Errorf("binding flag --%s: %w", flag.Name, err)
		}
	})
	return bindErr
}

// Validate checks every setting and reports the first problem found.
func (c *Config) Validate() error {
	switch c.Scan.Mode {
	case ModeShallow, ModeDeep:
	default:
		return fmt.Errorf("%w: scan.mode must be %q or %q, got %q", ErrInvalid, ModeShallow, ModeDeep, c.Scan.Mode)
	}
	if c.Scan.MaxDepth < 0 {
		return fmt.Errorf("%w: scan.max_depth must not be negative", ErrInvalid)
	}
	if c.Scan.MaxFileSize < 0 {
		return fmt.Errorf("%w: scan.max_file_size must not be negative", ErrInvalid)
	}
	if err := ignore.ValidatePatterns(c.Scan.Exclude); err != nil {
		return fmt.Errorf("%w: scan.exclude: %v", ErrInvalid, err)
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("%w: watch.debounce must be positive", ErrInvalid)
	}
	if c.Watch.ResyncInterval < 0 {
		return fmt.Errorf("%w: watch.resync_interval must not be negative", ErrInvalid)
	}
	if c.Analysis.Concurrency < 0 {
		return fmt.Errorf("%w: analysis.concurrency must not be negative", ErrInvalid)
	}
	switch engine.FailurePolicy(c.Analysis.FailurePolicy) {
	case engine.FailureOmit, engine.FailureKeepPrevious:
	default:
		return fmt.Errorf("%w: analysis.failure_policy must be %q or %q, got %q",
			ErrInvalid, engine.FailureOmit, engine.FailureKeepPrevious, c.Analysis.FailurePolicy)
	}
	if c.Analysis.RateLimit < 0 {
		return fmt.Errorf("%w: analysis.rate_limit must not be negative", ErrInvalid)
	}
	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("%w: analysis.timeout must not be negative", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level must be debug, info, warn or error, got %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Filters converts the scan settings to engine filters.
func (c *Config) Filters() model.Filters {
	maxDepth := c.Scan.MaxDepth
	if c.Scan.Mode == ModeShallow {
		maxDepth = 1
	}
	return model.Filters{
		MaxDepth:         maxDepth,
		ExcludePatterns:  c.Scan.Exclude,
		MaxFileSizeBytes: c.Scan.MaxFileSize,
		UseGitignore:     c.Scan.Gitignore,
	}
}

// EngineOptions converts the analysis settings to engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Concurrency:   c.Analysis.Concurrency,
		FailurePolicy: engine.FailurePolicy(c.Analysis.FailurePolicy),
	}
}

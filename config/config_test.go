package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aMonteSl/codexr-mcp/engine"
)

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "codexr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func Test_Load_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{SearchDirs: []string{t.TempDir()}})
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.Scan.Mode, cfg.Scan.Mode)
	assert.Empty(t, cfg.Scan.Exclude)
	assert.Equal(t, defaults.Scan.MaxFileSize, cfg.Scan.MaxFileSize)
	assert.Equal(t, defaults.Watch, cfg.Watch)
	assert.Empty(t, cfg.Analysis.Command)
	assert.Equal(t, defaults.Analysis.RateLimit, cfg.Analysis.RateLimit)
	assert.Equal(t, defaults.State, cfg.State)
	assert.Equal(t, defaults.Log, cfg.Log)
	assert.Equal(t, 0, cfg.Filters().MaxDepth)
	assert.True(t, cfg.Filters().UseGitignore)
	assert.Equal(t, engine.FailureOmit, cfg.EngineOptions().FailurePolicy)
}

func Test_Load_FromSearchDir(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
scan:
  mode: shallow
  exclude: ["vendor/", "**/*_gen.go"]
  max_file_size: 2048
watch:
  debounce: 750ms
  enabled: false
analysis:
  concurrency: 8
  command: ["metrics-tool", "--json", "{file}"]
  failure_policy: keep-previous
log:
  level: debug
`)

	cfg, err := Load(LoadOptions{SearchDirs: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, ModeShallow, cfg.Scan.Mode)
	assert.Equal(t, []string{"vendor/", "**/*_gen.go"}, cfg.Scan.Exclude)
	assert.Equal(t, 750*time.Millisecond, cfg.Watch.Debounce)
	assert.False(t, cfg.Watch.Enabled)
	assert.Equal(t, []string{"metrics-tool", "--json", "{file}"}, cfg.Analysis.Command)
	assert.Equal(t, "debug", cfg.Log.Level)

	filters := cfg.Filters()
	assert.Equal(t, 1, filters.MaxDepth)
	assert.True(t, filters.IsShallow())
	assert.Equal(t, int64(2048), filters.MaxFileSizeBytes)

	options := cfg.EngineOptions()
	assert.Equal(t, 8, options.Concurrency)
	assert.Equal(t, engine.FailureKeepPrevious, options.FailurePolicy)
}

func Test_Load_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func Test_Load_ExplicitFile(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "scan:\n  max_depth: 3\n")

	cfg, err := Load(LoadOptions{File: path})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Filters().MaxDepth)
}

func Test_Load_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "watch:\n  debounce: 1s\n")
	t.Setenv("CODEXR_WATCH_DEBOUNCE", "250ms")
	t.Setenv("CODEXR_ANALYSIS_CONCURRENCY", "2")

	cfg, err := Load(LoadOptions{SearchDirs: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 2, cfg.Analysis.Concurrency)
}

func Test_Load_FlagsOverrideEverything(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "scan:\n  mode: deep\nlog:\n  level: warn\n")
	t.Setenv("CODEXR_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("mode", ModeDeep, "")
	flags.String("log-level", "info", "")
	flags.Duration("debounce", time.Second, "")
	require.NoError(t, flags.Parse([]string{"--mode=shallow", "--log-level=debug"}))

	cfg, err := Load(LoadOptions{SearchDirs: []string{dir}, Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, ModeShallow, cfg.Scan.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
	// An unset flag does not override the default.
	assert.Equal(t, Default().Watch.Debounce, cfg.Watch.Debounce)
}

func Test_Load_InvalidFileIsRejected(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "scan:\n  mode: sideways\n")

	_, err := Load(LoadOptions{SearchDirs: []string{dir}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func Test_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Scan.Mode = "wide" }},
		{"max depth", func(c *Config) { c.Scan.MaxDepth = -1 }},
		{"max file size", func(c *Config) { c.Scan.MaxFileSize = -5 }},
		{"exclude pattern", func(c *Config) { c.Scan.Exclude = []string{"[oops"} }},
		{"debounce", func(c *Config) { c.Watch.Debounce = 0 }},
		{"resync", func(c *Config) { c.Watch.ResyncInterval = -time.Second }},
		{"concurrency", func(c *Config) { c.Analysis.Concurrency = -1 }},
		{"failure policy", func(c *Config) { c.Analysis.FailurePolicy = "retry" }},
		{"rate limit", func(c *Config) { c.Analysis.RateLimit = -1 }},
		{"timeout", func(c *Config) { c.Analysis.Timeout = -time.Second }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.JudgeModel)
	assert.Equal(t, 10*time.Second, cfg.Judge.Timeout())
	assert.Equal(t, 3, cfg.Judge.MaxAttempts)
	assert.InDelta(t, 5, cfg.Judge.RequestsPerSec, 0.001)
	assert.Equal(t, 5, cfg.Judge.FailureThreshold)
	assert.Equal(t, 30, cfg.Judge.ResetTimeoutSecs)
	assert.InDelta(t, 0.85, cfg.Resolve.FuzzyThreshold, 0.001)
	assert.InDelta(t, 0.90, cfg.Resolve.TokenThreshold, 0.001)
	assert.InDelta(t, 0.6, cfg.Resolve.JudgeEditFloor, 0.001)
	assert.InDelta(t, 0.7, cfg.Resolve.JudgeTokenFloor, 0.001)
	assert.InDelta(t, 0.7, cfg.Resolve.JudgeMinConfidence, 0.001)
	assert.Equal(t, 50, cfg.Resolve.CandidateLimit)
	assert.Equal(t, 5, cfg.Resolve.JudgeCandidates)
	assert.Equal(t, "first", cfg.Resolve.Policy)
	assert.Equal(t, 8, cfg.Ingest.MaxConcurrency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: ./catalog.db
log:
  level: debug
  format: console
resolve:
  policy: best
  fuzzy_threshold: 0.9
ingest:
  max_concurrency: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./catalog.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "best", cfg.Resolve.Policy)
	assert.InDelta(t, 0.9, cfg.Resolve.FuzzyThreshold, 0.001)
	assert.Equal(t, 2, cfg.Ingest.MaxConcurrency)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.90, cfg.Resolve.TokenThreshold, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SPIRITS_STORE_DRIVER", "postgres")
	t.Setenv("SPIRITS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SPIRITS_STORE_DATABASE_URL", "postgres://localhost/spirits")
	t.Setenv("SPIRITS_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("SPIRITS_INGEST_MAX_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/spirits", cfg.Store.DatabaseURL)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, 3, cfg.Ingest.MaxConcurrency)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "./catalog.db"
	cfg.Judge = JudgeConfig{TimeoutSecs: 10, MaxAttempts: 3, RequestsPerSec: 5, FailureThreshold: 5, ResetTimeoutSecs: 30}
	cfg.Resolve = ResolveConfig{
		FuzzyThreshold:     0.85,
		TokenThreshold:     0.90,
		JudgeEditFloor:     0.6,
		JudgeTokenFloor:    0.7,
		JudgeMinConfidence: 0.7,
		CandidateLimit:     50,
		JudgeCandidates:    5,
		Policy:             "first",
	}
	cfg.Ingest.MaxConcurrency = 8
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	for _, mode := range []string{"migrate", "ingest", "match"} {
		assert.NoError(t, validDefaults().Validate(mode), mode)
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_MigrateIgnoresResolve(t *testing.T) {
	cfg := validDefaults()
	cfg.Resolve.Policy = "random"

	assert.NoError(t, cfg.Validate("migrate"))
	assert.Error(t, cfg.Validate("match"))
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"fuzzy above one", func(c *Config) { c.Resolve.FuzzyThreshold = 1.2 }, "resolve.fuzzy_threshold"},
		{"negative token", func(c *Config) { c.Resolve.TokenThreshold = -0.1 }, "resolve.token_threshold"},
		{"judge confidence", func(c *Config) { c.Resolve.JudgeMinConfidence = 2 }, "resolve.judge_min_confidence"},
		{"candidate limit", func(c *Config) { c.Resolve.CandidateLimit = 0 }, "resolve.candidate_limit"},
		{"judge candidates", func(c *Config) { c.Resolve.JudgeCandidates = 0 }, "resolve.judge_candidates"},
		{"policy", func(c *Config) { c.Resolve.Policy = "random" }, "resolve.policy"},
		{"concurrency", func(c *Config) { c.Ingest.MaxConcurrency = 0 }, "ingest.max_concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("ingest")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_JudgeOnlyCheckedWithKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Judge.TimeoutSecs = 0
	assert.NoError(t, cfg.Validate("ingest"))

	cfg.Anthropic.Key = "sk-ant-key"
	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge.timeout_secs")
}

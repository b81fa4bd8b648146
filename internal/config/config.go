package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Judge     JudgeConfig     `yaml:"judge" mapstructure:"judge"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the catalog backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	JudgeModel string `yaml:"judge_model" mapstructure:"judge_model"`
}

// JudgeConfig bounds calls to the external judge.
type JudgeConfig struct {
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// Timeout returns the per-call judge timeout.
func (j JudgeConfig) Timeout() time.Duration {
	return time.Duration(j.TimeoutSecs) * time.Second
}

// ResolveConfig holds the match cascade thresholds.
type ResolveConfig struct {
	FuzzyThreshold     float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	TokenThreshold     float64 `yaml:"token_threshold" mapstructure:"token_threshold"`
	JudgeEditFloor     float64 `yaml:"judge_edit_floor" mapstructure:"judge_edit_floor"`
	JudgeTokenFloor    float64 `yaml:"judge_token_floor" mapstructure:"judge_token_floor"`
	JudgeMinConfidence float64 `yaml:"judge_min_confidence" mapstructure:"judge_min_confidence"`
	CandidateLimit     int     `yaml:"candidate_limit" mapstructure:"candidate_limit"`
	JudgeCandidates    int     `yaml:"judge_candidates" mapstructure:"judge_candidates"`
	Policy             string  `yaml:"policy" mapstructure:"policy"`
}

// IngestConfig configures batch ingestion.
type IngestConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPIRITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a default still need registering so
	// AutomaticEnv can see them during Unmarshal.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("anthropic.judge_model", "claude-haiku-4-5-20251001")
	v.SetDefault("judge.timeout_secs", 10)
	v.SetDefault("judge.max_attempts", 3)
	v.SetDefault("judge.requests_per_sec", 5)
	v.SetDefault("judge.failure_threshold", 5)
	v.SetDefault("judge.reset_timeout_secs", 30)
	v.SetDefault("resolve.fuzzy_threshold", 0.85)
	v.SetDefault("resolve.token_threshold", 0.90)
	v.SetDefault("resolve.judge_edit_floor", 0.6)
	v.SetDefault("resolve.judge_token_floor", 0.7)
	v.SetDefault("resolve.judge_min_confidence", 0.7)
	v.SetDefault("resolve.candidate_limit", 50)
	v.SetDefault("resolve.judge_candidates", 5)
	v.SetDefault("resolve.policy", "first")
	v.SetDefault("ingest.max_concurrency", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is the command name:
// "migrate", "ingest", or "match".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "migrate", "ingest", "match":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode != "migrate" {
		errs = append(errs, c.Resolve.validate()...)
		if c.Anthropic.Key != "" {
			errs = append(errs, c.Judge.validate()...)
		}
	}
	if mode == "ingest" && (c.Ingest.MaxConcurrency < 1 || c.Ingest.MaxConcurrency > 64) {
		errs = append(errs, fmt.Sprintf("ingest.max_concurrency must be in [1, 64], got %d", c.Ingest.MaxConcurrency))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (r ResolveConfig) validate() []string {
	var errs []string
	unit := []struct {
		key string
		val float64
	}{
		{"resolve.fuzzy_threshold", r.FuzzyThreshold},
		{"resolve.token_threshold", r.TokenThreshold},
		{"resolve.judge_edit_floor", r.JudgeEditFloor},
		{"resolve.judge_token_floor", r.JudgeTokenFloor},
		{"resolve.judge_min_confidence", r.JudgeMinConfidence},
	}
	for _, u := range unit {
		if u.val < 0 || u.val > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0, 1], got %g", u.key, u.val))
		}
	}
	if r.CandidateLimit < 1 {
		errs = append(errs, "resolve.candidate_limit must be positive")
	}
	if r.JudgeCandidates < 1 {
		errs = append(errs, "resolve.judge_candidates must be positive")
	}
	if r.Policy != "first" && r.Policy != "best" {
		errs = append(errs, fmt.Sprintf("resolve.policy must be first or best, got %q", r.Policy))
	}
	return errs
}

func (j JudgeConfig) validate() []string {
	var errs []string
	if j.TimeoutSecs < 1 {
		errs = append(errs, "judge.timeout_secs must be positive")
	}
	if j.MaxAttempts < 1 {
		errs = append(errs, "judge.max_attempts must be positive")
	}
	if j.RequestsPerSec <= 0 {
		errs = append(errs, "judge.requests_per_sec must be positive")
	}
	if j.FailureThreshold < 1 {
		errs = append(errs, "judge.failure_threshold must be positive")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

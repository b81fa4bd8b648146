package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spirits-catalog/internal/catalog"
	"github.com/sells-group/spirits-catalog/internal/config"
	"github.com/sells-group/spirits-catalog/internal/judge"
	"github.com/sells-group/spirits-catalog/internal/resilience"
	"github.com/sells-group/spirits-catalog/internal/resolve"
	"github.com/sells-group/spirits-catalog/pkg/anthropic"
)

func initStore(ctx context.Context) (catalog.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return catalog.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return catalog.NewPostgres(ctx, cfg.Store.DatabaseURL, &catalog.PoolConfig{MaxConns: cfg.Store.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initJudge returns nil when no Anthropic key is configured, which turns
// the judge tier off.
func initJudge() judge.Judge {
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("anthropic key not set (SPIRITS_ANTHROPIC_KEY); judge tier disabled")
		return nil
	}
	return judge.NewAnthropicJudge(anthropic.NewClient(cfg.Anthropic.Key), judgeConfig(cfg))
}

func judgeConfig(c *config.Config) judge.Config {
	jc := judge.DefaultConfig()
	jc.Model = c.Anthropic.JudgeModel
	jc.Timeout = c.Judge.Timeout()
	jc.RequestsPerSecond = c.Judge.RequestsPerSec
	jc.Retry = resilience.FromRetrySettings(c.Judge.MaxAttempts, 0)
	jc.Breaker = resilience.FromBreakerSettings(c.Judge.FailureThreshold, c.Judge.ResetTimeoutSecs)
	return jc
}

func resolveConfig(c *config.Config) resolve.Config {
	return resolve.Config{
		FuzzyThreshold:     c.Resolve.FuzzyThreshold,
		TokenThreshold:     c.Resolve.TokenThreshold,
		JudgeEditFloor:     c.Resolve.JudgeEditFloor,
		JudgeTokenFloor:    c.Resolve.JudgeTokenFloor,
		JudgeMinConfidence: c.Resolve.JudgeMinConfidence,
		CandidateLimit:     c.Resolve.CandidateLimit,
		JudgeCandidates:    c.Resolve.JudgeCandidates,
		Policy:             resolve.Policy(c.Resolve.Policy),
	}
}

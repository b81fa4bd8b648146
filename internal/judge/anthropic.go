package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/spirits-catalog/internal/resilience"
	"github.com/sells-group/spirits-catalog/pkg/anthropic"
)

const systemPrompt = `You decide whether two bar-menu listings name the same bottled spirit product.
Listings may differ in capitalization, punctuation, legal category wording ("Kentucky Straight Bourbon Whiskey"), proof or ABV annotations, and the phrasing of age statements; those differences do not make different products.
Different age statements, expressions (cask strength, single barrel, a named finish or edition), or distilleries DO make different products.
Respond with only a JSON object: {"same_product": <true|false>, "confidence": <0.0-1.0>, "reasoning": "<one short sentence>"}`

// Config tunes an AnthropicJudge.
type Config struct {
	Model             string
	MaxTokens         int64
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             resilience.RetryConfig
	Breaker           resilience.BreakerConfig
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Model:             "claude-haiku-4-5-20251001",
		MaxTokens:         256,
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Retry:             resilience.DefaultRetryConfig(),
		Breaker:           resilience.DefaultBreakerConfig(),
	}
}

// AnthropicJudge asks a Claude model to compare names. Each round-trip is
// rate limited, bounded by Config.Timeout, retried on transient failures,
// and guarded by a circuit breaker.
type AnthropicJudge struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewAnthropicJudge creates a judge backed by client.
func NewAnthropicJudge(client anthropic.Client, cfg Config) *AnthropicJudge {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "judge")
	}
	if cfg.Breaker.ShouldTrip == nil {
		cfg.Breaker.ShouldTrip = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if cfg.Breaker.OnStateChange == nil {
		cfg.Breaker.OnStateChange = func(from, to resilience.CircuitState) {
			zap.L().Warn("judge: circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}

	return &AnthropicJudge{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: resilience.NewBreaker(cfg.Breaker),
	}
}

// Compare implements Judge.
func (j *AnthropicJudge) Compare(ctx context.Context, a, b string) (Verdict, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (Verdict, error) {
		return resilience.DoVal(ctx, j.cfg.Retry, func(ctx context.Context) (Verdict, error) {
			return j.compareOnce(ctx, a, b)
		})
	})
}

func (j *AnthropicJudge) compareOnce(ctx context.Context, a, b string) (Verdict, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return Verdict{}, eris.Wrap(err, "judge: rate limit wait")
	}

	callCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	temp := 0.0
	resp, err := j.client.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: fmt.Sprintf("Listing A: %s\nListing B: %s", a, b)}},
		Temperature: &temp,
	})
	if err != nil {
		wrapped := eris.Wrap(err, "judge: create message")
		if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
			return Verdict{}, resilience.NewTransientError(wrapped, code)
		}
		// A per-call timeout while the caller is still waiting is worth
		// another attempt.
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Verdict{}, resilience.NewTransientError(wrapped, 0)
		}
		return Verdict{}, wrapped
	}
	resp.Usage.LogCost(j.cfg.Model, "judge")

	v, err := ParseVerdict(resp.Text())
	if err != nil {
		return Verdict{}, err
	}
	zap.L().Debug("judge: verdict",
		zap.String("a", a),
		zap.String("b", b),
		zap.Bool("same_product", v.SameProduct),
		zap.Float64("confidence", v.Confidence),
	)
	return v, nil
}

// Package judge decides whether two spirit display names denote the same
// product when string similarity alone is inconclusive.
package judge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Verdict is a judge's answer for one pair of names.
type Verdict struct {
	SameProduct bool    `json:"same_product"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

// Judge compares two original display names.
type Judge interface {
	Compare(ctx context.Context, a, b string) (Verdict, error)
}

// Func adapts a plain function to Judge.
type Func func(ctx context.Context, a, b string) (Verdict, error)

// Compare calls f.
func (f Func) Compare(ctx context.Context, a, b string) (Verdict, error) {
	return f(ctx, a, b)
}

// StaticJudge returns the same verdict, or error, for every pair.
type StaticJudge struct {
	Verdict Verdict
	Err     error
}

// Compare returns the fixed answer.
func (s StaticJudge) Compare(_ context.Context, _, _ string) (Verdict, error) {
	if s.Err != nil {
		return Verdict{}, s.Err
	}
	return s.Verdict, nil
}

// ParseVerdict decodes a model reply into a Verdict. Both fields are
// required and confidence must lie in [0, 1].
func ParseVerdict(text string) (Verdict, error) {
	cleaned := cleanJSON(text)
	var raw struct {
		SameProduct *bool    `json:"same_product"`
		Confidence  *float64 `json:"confidence"`
		Reasoning   string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Verdict{}, eris.Wrapf(err, "judge: parse verdict %q", truncate(text, 200))
	}
	if raw.SameProduct == nil || raw.Confidence == nil {
		return Verdict{}, eris.Errorf("judge: verdict missing fields: %q", truncate(text, 200))
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return Verdict{}, eris.Errorf("judge: confidence %v out of range", *raw.Confidence)
	}
	return Verdict{
		SameProduct: *raw.SameProduct,
		Confidence:  *raw.Confidence,
		Reasoning:   raw.Reasoning,
	}, nil
}

// cleanJSON strips markdown fences and any prose around the first JSON
// object in text.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

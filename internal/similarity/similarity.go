// Package similarity scores how alike two spirit names are. Every scorer is
// pure, commutative, and returns a value in [0, 1] where 1 means identical.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/sells-group/spirits-catalog/internal/normalize"
)

// stopWords carry no identity and are dropped before token scoring.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "of": {}, "and": {}, "in": {}, "the": {}, "by": {}, "for": {},
}

// EditSimilarity normalizes both raw names and returns their edit ratio.
func EditSimilarity(a, b string) float64 {
	return EditRatio(normalize.Normalize(a), normalize.Normalize(b))
}

// TokenSimilarity normalizes both raw names and returns their token ratio.
func TokenSimilarity(a, b string) float64 {
	return TokenRatio(normalize.Normalize(a), normalize.Normalize(b))
}

// EditRatio is 1 - levenshtein(a, b) / max(len(a), len(b)) over two
// canonical keys, measured in runes. Two empty keys score 1.
func EditRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	return clamp(1 - float64(dist)/float64(maxLen))
}

// TokenRatio is the Sørensen-Dice coefficient over the meaningful tokens of
// two canonical keys. Repeated tokens count once per occurrence on each side.
func TokenRatio(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	freq := make(map[string]int, len(tb))
	for _, t := range tb {
		freq[t]++
	}
	shared := 0
	for _, t := range ta {
		if freq[t] > 0 {
			freq[t]--
			shared++
		}
	}
	return clamp(2 * float64(shared) / float64(len(ta)+len(tb)))
}

// Tokens splits a canonical key on whitespace and hyphens and drops stop
// words.
func Tokens(key string) []string {
	fields := strings.FieldsFunc(key, func(r rune) bool {
		return r == '-' || r == ' ' || r == '\t' || r == '\n'
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

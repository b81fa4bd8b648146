// Package normalize turns free-form spirit names into canonical matching
// keys and separates store-pick designations from the product name.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the fixed-point loop in Normalize. Real names settle in
// one or two passes.
const maxPasses = 4

var glyphReplacer = strings.NewReplacer(
	"—", " - ", // em dash
	"–", " - ", // en dash
	"‒", " - ",
	"‐", "-",
	"‑", "-",
	"‘", "'",
	"’", "'",
	"‚", "'",
	"‛", "'",
	"′", "'",
	"´", "'",
	"`", "'",
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"″", `"`,
	"™", "",
	"®", "",
	"©", "",
	"\u00a0", " ",
)

var (
	multiHyphenRe = regexp.MustCompile(`-{2,}`)
	spaceRe       = regexp.MustCompile(`\s+`)
	quoteRe       = regexp.MustCompile(`['"]`)
	bracketRe     = regexp.MustCompile(`[()\[\]{}]`)
)

// Normalize maps a raw name to its canonical key. It is total and
// deterministic; blank input yields "". The pipeline is re-applied until the
// output stops changing, so Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	key := raw
	for i := 0; i < maxPasses; i++ {
		next := normalizeOnce(key)
		if next == key {
			break
		}
		key = next
	}
	return key
}

func normalizeOnce(s string) string {
	s = cleanGlyphs(s)
	s = strings.ToLower(s)
	s = stripLeadingArticle(s)
	s = applyRules(distilleryAliases, s)
	s = applyRules(proofAnnotations, s)
	s = stripCategory(s)
	s = ageStatement.Pattern.ReplaceAllString(s, ageStatement.Replacement)
	s = quoteRe.ReplaceAllString(s, "")
	return tidy(s)
}

// cleanGlyphs folds typographic punctuation to ASCII, drops trademark
// glyphs and accents, and collapses hyphen and whitespace runs.
func cleanGlyphs(s string) string {
	s = glyphReplacer.Replace(s)
	// Transformers carry state, so each call builds its own chain.
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = multiHyphenRe.ReplaceAllString(s, "-")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func stripLeadingArticle(s string) string {
	for strings.HasPrefix(s, "the ") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "the "))
	}
	return s
}

func stripCategory(s string) string {
	s = applyRules(categoryPhrases, s)
	s = trimTail(spaceRe.ReplaceAllString(s, " "))
	for {
		next := trimTail(applyRules(trailingSuffixes, s))
		if next == s {
			return s
		}
		s = next
	}
}

// trimTail drops separators and whitespace left dangling at the end of a
// name once a suffix is cut away.
func trimTail(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " -,;:/|")
}

func tidy(s string) string {
	s = bracketRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(strings.TrimSpace(s), " -,;:/|")
	return strings.TrimSpace(s)
}

// AgeVariant returns the one alternate spelling of key used for exact
// lookups: with "year" tokens dropped when key carries an age statement, or
// with "year" added after bare one- or two-digit numbers when it does not.
// It returns "" when there is no alternate.
func AgeVariant(key string) string {
	tokens := strings.Fields(key)
	hasAge := false
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == "year" && isAgeNumber(tokens[i-1]) {
			hasAge = true
			break
		}
	}

	out := make([]string, 0, len(tokens)+1)
	for i, tok := range tokens {
		if hasAge {
			if tok == "year" && i > 0 && isAgeNumber(tokens[i-1]) {
				continue
			}
			out = append(out, tok)
			continue
		}
		out = append(out, tok)
		if isAgeNumber(tok) && (i+1 == len(tokens) || tokens[i+1] != "year") {
			out = append(out, "year")
		}
	}

	variant := strings.Join(out, " ")
	if variant == key {
		return ""
	}
	return variant
}

// IdentityKey returns the spelling of key that uniquely identifies a
// product in the catalog: "year" tokens following an age number are dropped,
// so a key and its AgeVariant share one identity.
func IdentityKey(key string) string {
	tokens := strings.Fields(key)
	out := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if tok == "year" && i > 0 && isAgeNumber(tokens[i-1]) {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

func isAgeNumber(tok string) bool {
	if len(tok) == 0 || len(tok) > 2 {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AgeOf returns the first age-like number in key (a one- or two-digit
// token), or "" when key carries none.
func AgeOf(key string) string {
	for _, tok := range strings.Fields(key) {
		if isAgeNumber(tok) {
			return tok
		}
	}
	return ""
}

package normalize

import (
	"regexp"
	"strings"
)

var (
	pickKeywordRe        = keywordPattern(pickKeywords)
	bracketPickKeywordRe = keywordPattern(bracketPickKeywords)

	// pickSeparatorRe matches a spaced hyphen, a pipe, or an en/em dash.
	// Unspaced ASCII hyphens belong to brand names ("Old Grand-Dad").
	pickSeparatorRe = regexp.MustCompile(`\s+-+\s+|\s*\|\s*|\s*[\x{2013}\x{2014}]\s*`)
	pickBracketRe   = regexp.MustCompile(`[(\[]([^()\[\]]*)[)\]]`)
)

// ParsePick splits a raw display name into the product's base name and a
// store-pick or private-barrel designation. info is "" when the name
// carries no designation, in which case base is the trimmed input.
//
// It runs on the raw string, before Normalize, since picks are written with
// dashes, pipes, and brackets that normalization would erase.
func ParsePick(raw string) (base, info string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ""
	}
	if base, info, ok := splitInline(s); ok {
		return base, info
	}
	if base, info, ok := splitBracket(s); ok {
		return base, info
	}
	return s, ""
}

// splitInline handles "<base> - <tail>". The rightmost separator whose tail
// names a pick wins, so "Four Roses - OESK - Store Pick" keeps OESK in base.
func splitInline(s string) (string, string, bool) {
	locs := pickSeparatorRe.FindAllStringIndex(s, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		head := trimPickText(s[:locs[i][0]])
		tail := trimPickText(s[locs[i][1]:])
		if head == "" || tail == "" {
			continue
		}
		if pickKeywordRe.MatchString(tail) {
			return head, tail, true
		}
	}
	return "", "", false
}

func splitBracket(s string) (string, string, bool) {
	for _, m := range pickBracketRe.FindAllStringSubmatchIndex(s, -1) {
		inner := strings.TrimSpace(s[m[2]:m[3]])
		if inner == "" || !bracketPickKeywordRe.MatchString(inner) {
			continue
		}
		base := strings.TrimSpace(strings.TrimSpace(s[:m[0]]) + " " + strings.TrimSpace(s[m[1]:]))
		base = spaceRe.ReplaceAllString(base, " ")
		if base == "" {
			continue
		}
		return base, inner, true
	}
	return "", "", false
}

func trimPickText(s string) string {
	return strings.Trim(strings.TrimSpace(s), " -|,;:")
}

package normalize

import (
	"regexp"
	"strings"
)

// Rule is one ordered rewrite: every match of Pattern becomes Replacement
// (which may reference capture groups).
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

func rule(name, pattern, replacement string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replacement: replacement}
}

// applyRules runs rules in order, each over the previous rule's output.
func applyRules(rules []Rule, s string) string {
	for _, r := range rules {
		s = r.Pattern.ReplaceAllString(s, r.Replacement)
	}
	return s
}

// distilleryAliases collapse spelling variants of a producer name. They run
// after the leading "the " strip, so entries that start with "the" only
// catch the article where it is not the first word.
var distilleryAliases = []Rule{
	rule("macallan", `\bthe macallan\b`, "macallan"),
	rule("glenlivet", `\bthe glenlivet\b`, "glenlivet"),
	rule("balvenie", `\bthe balvenie\b`, "balvenie"),
	rule("dalmore", `\bthe dalmore\b`, "dalmore"),
	rule("glenrothes", `\bthe glenrothes\b`, "glenrothes"),
	rule("glendronach", `\bthe glendronach\b`, "glendronach"),
	rule("makers mark", `\bmaker'?s mark\b`, "maker's mark"),
	rule("jack daniels", `\bjack daniel'?s\b`, "jack daniel's"),
	rule("blantons", `\bblanton'?s\b`, "blanton's"),
	rule("angels envy", `\bangel'?s envy\b`, "angel's envy"),
	rule("johnnie walker", `\bjohnn(?:ie|y) walker\b`, "johnnie walker"),
	rule("old forester", `\bold forr?ester\b`, "old forester"),
	rule("weller", `\bw\.?\s?l\.?\s+weller\b`, "weller"),
	rule("st george", `\bst\.?\s+george'?s?\b`, "st george"),
	rule("suntory", `\bsuntory (hibiki|yamazaki|hakushu|toki)\b`, "$1"),
	rule("distillery name", `\b(buffalo trace|four roses|heaven hill|wild turkey|woodford reserve|barton 1792|maker's mark) distillery\b`, "$1"),
}

// proofAnnotations remove ABV and proof statements. Order matters: the
// compound forms go first so "45% abv" does not leave a dangling "abv".
var proofAnnotations = []Rule{
	rule("proof", `\b\d+(?:\.\d+)?\s*-?\s*proof\b`, ""),
	rule("abv prefix", `\babv\s*:?\s*\d+(?:\.\d+)?\s*%`, ""),
	rule("abv suffix", `\d+(?:\.\d+)?\s*%\s*abv\b`, ""),
	rule("percent", `\d+(?:\.\d+)?\s*%(?:\s*abv\b)?`, ""),
}

// categoryPhrases strip legal category statements wherever they appear.
// Rye is kept as a grain marker since a distillery's rye and bourbon are
// different products; bourbon is the unmarked default.
var categoryPhrases = []Rule{
	rule("ky straight bourbon", `\bkentucky straight bourbon(?: whiske?y)?\b`, ""),
	rule("straight rye", `\b(?:kentucky )?straight rye whiske?y\b`, "rye"),
	rule("straight bourbon", `\bstraight bourbon whiske?y\b`, ""),
	rule("bourbon whiskey", `\bbourbon whiske?y\b`, ""),
	rule("rye whiskey", `\brye whiske?y\b`, "rye"),
	rule("tennessee", `\btennessee (?:sour mash )?whiske?y\b`, ""),
	rule("single malt scotch", `\b(?:(?:highland|lowland|speyside|islay|island|campbeltown) )?single malt scotch whiske?y\b`, ""),
	rule("blended scotch", `\bblended (?:malt )?scotch whiske?y\b`, ""),
	rule("scotch", `\bscotch whiske?y\b`, ""),
	rule("irish", `\b(?:single pot still )?irish whiske?y\b`, ""),
	rule("japanese", `\bjapanese (?:single malt )?whiske?y\b`, ""),
	rule("canadian", `\bcanadian (?:rye )?whiske?y\b`, ""),
	rule("american", `\bamerican (?:single malt )?whiske?y\b`, ""),
	rule("single malt", `\bsingle malt whiske?y\b`, ""),
}

// trailingSuffixes only fire at the end of the name. They need a preceding
// space so a name that is nothing but "whiskey" survives.
var trailingSuffixes = []Rule{
	rule("whiskey", `\s+whiske?y$`, ""),
	rule("distillery", `\s+distillery$`, ""),
	rule("bourbon", `\s+bourbon$`, ""),
}

// ageStatement collapses every surface form of an age statement to
// "<n> year". The trailing group is re-emitted since RE2 has no lookahead.
var ageStatement = rule("age",
	`(?:\baged\s+)?\b(\d{1,3})\s*-?\s*(?:years?|yrs?|y\.?\s?o\.?)(?:\s*-?\s*old)?(\W|$)`,
	"${1} year${2}",
)

// pickKeywords mark the tail of an inline "<base> - <tail>" name as a
// store-pick designation.
var pickKeywords = []string{
	`private\s+barrel`,
	`private\s+select(?:ion)?`,
	`store\s+pick`,
	`single\s+barrel\s+select(?:ion)?`,
	`barrel\s+pick`,
	`barrel\s+select(?:ion)?`,
	`cask\s+select(?:ion)?`,
	`hand[\s-]?picked`,
	`pick(?:ed)?`,
}

// bracketPickKeywords mark a (...) or [...] block as a pick designation.
var bracketPickKeywords = []string{
	`pick(?:ed)?`,
	`private`,
	`selection`,
	`barrel\s+select`,
}

func keywordPattern(words []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
}

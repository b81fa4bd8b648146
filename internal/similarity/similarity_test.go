package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var samplePairs = [][2]string{
	{"Lagavulin 16", "Lagavulin 8"},
	{"Laphroaig 10", "Laphroaig 10 Cask Strength"},
	{"Buffalo Trace", "Buffalo Trace Kentucky Straight Bourbon Whiskey"},
	{"Eagle Rare 10", "Rare Eagle 10"},
	{"", "Macallan 12"},
	{"", ""},
	{"Blanton's Single Barrel", "Blantons Gold"},
	{"Maker’s Mark 46", "Makers Mark 46"},
	{"The", "Of The And"},
	{"ardbeg ardbeg ardbeg", "ardbeg"},
}

func TestEditRatio(t *testing.T) {
	assert.Equal(t, 1.0, EditRatio("", ""))
	assert.Equal(t, 0.0, EditRatio("", "macallan"))
	assert.Equal(t, 0.0, EditRatio("macallan", ""))
	assert.Equal(t, 1.0, EditRatio("macallan 12", "macallan 12"))
	// one substitution over 11 runes
	assert.InDelta(t, 1-1.0/11, EditRatio("macallan 12", "macallan 18"), 1e-9)
	// one deletion over 12 runes
	assert.InDelta(t, 1-1.0/12, EditRatio("lagavulin 16", "lagavulin 6"), 1e-9)
}

func TestEditRatio_CountsRunes(t *testing.T) {
	assert.InDelta(t, 0.8, EditRatio("crème", "creme"), 1e-9)
}

func TestEditRatio_LongInput(t *testing.T) {
	a := strings.Repeat("glenfarclas ", 60)
	b := strings.Repeat("glenfarclas ", 59) + "glenfarclas"
	score := EditRatio(a, b)
	assert.Greater(t, score, 0.99)
	assert.LessOrEqual(t, score, 1.0)
}

func TestTokenRatio(t *testing.T) {
	assert.Equal(t, 1.0, TokenRatio("", ""))
	assert.Equal(t, 0.0, TokenRatio("", "macallan"))
	assert.Equal(t, 1.0, TokenRatio("eagle rare 10", "rare eagle 10"))
	// 2 shared of 2 + 4 tokens
	assert.InDelta(t, 4.0/6, TokenRatio("laphroaig 10", "laphroaig 10 cask strength"), 1e-9)
}

func TestTokenRatio_StopWords(t *testing.T) {
	assert.Equal(t, 1.0, TokenRatio("spirit of the hills", "spirit hills"))
	assert.Equal(t, 1.0, TokenRatio("the", "of and"))
	assert.Equal(t, 0.0, TokenRatio("the", "ardbeg"))
}

func TestTokenRatio_RepeatedTokens(t *testing.T) {
	// one shared occurrence over 3 + 1 tokens
	assert.InDelta(t, 0.5, TokenRatio("ardbeg ardbeg ardbeg", "ardbeg"), 1e-9)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"old", "grand", "dad", "bonded"}, Tokens("old grand-dad bonded"))
	assert.Equal(t, []string{"spirit", "hills"}, Tokens("the spirit of the hills"))
	assert.Empty(t, Tokens(""))
}

func TestSimilarity_Commutative(t *testing.T) {
	for _, p := range samplePairs {
		assert.Equal(t, EditSimilarity(p[0], p[1]), EditSimilarity(p[1], p[0]), "edit %q %q", p[0], p[1])
		assert.Equal(t, TokenSimilarity(p[0], p[1]), TokenSimilarity(p[1], p[0]), "token %q %q", p[0], p[1])
	}
}

func TestSimilarity_Identity(t *testing.T) {
	for _, name := range []string{"Lagavulin 16", "The Macallan 18", "Maker’s Mark®", "Of The"} {
		assert.Equal(t, 1.0, EditSimilarity(name, name), name)
		assert.Equal(t, 1.0, TokenSimilarity(name, name), name)
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	for _, p := range samplePairs {
		for _, v := range []float64{EditSimilarity(p[0], p[1]), TokenSimilarity(p[0], p[1])} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestSimilarity_NormalizesInputs(t *testing.T) {
	assert.Equal(t, 1.0, EditSimilarity("The Macallan 18", "Macallan 18"))
	assert.Equal(t, 1.0, TokenSimilarity("Glenfiddich 12 Year Old", "Glenfiddich 12yr"))
}

func TestSimilarity_AgeStatementsStayApart(t *testing.T) {
	edit := EditSimilarity("Lagavulin 16", "Lagavulin 8")
	assert.Less(t, edit, 1.0)
	assert.Less(t, TokenSimilarity("Lagavulin 16", "Lagavulin 8"), 0.9)
}

// Package resolve maps raw spirit names onto catalog identities through a
// short-circuiting cascade: exact key, fuzzy edit distance, token overlap,
// and finally an external judge. Names that match nothing become drafts for
// new catalog entries.
package resolve

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spirits-catalog/internal/catalog"
	"github.com/sells-group/spirits-catalog/internal/judge"
	"github.com/sells-group/spirits-catalog/internal/model"
	"github.com/sells-group/spirits-catalog/internal/normalize"
	"github.com/sells-group/spirits-catalog/internal/similarity"
)

// Tier names the cascade step that settled an entry.
type Tier string

// Cascade tiers.
const (
	TierExact    Tier = "exact"
	TierFuzzy    Tier = "fuzzy"
	TierToken    Tier = "token"
	TierJudge    Tier = "judge"
	TierConflict Tier = "conflict"
	TierNew      Tier = "new"
)

// Policy selects among several candidates that clear a similarity tier.
type Policy string

// Match policies.
const (
	// PolicyFirst takes the first qualifying candidate in catalog order.
	PolicyFirst Policy = "first"
	// PolicyBest takes the highest-scoring qualifying candidate.
	PolicyBest Policy = "best"
)

// Config holds the cascade thresholds.
type Config struct {
	FuzzyThreshold     float64
	TokenThreshold     float64
	JudgeEditFloor     float64
	JudgeTokenFloor    float64
	JudgeMinConfidence float64 // strictly exceeded
	CandidateLimit     int
	JudgeCandidates    int
	Policy             Policy
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:     0.85,
		TokenThreshold:     0.90,
		JudgeEditFloor:     0.6,
		JudgeTokenFloor:    0.7,
		JudgeMinConfidence: 0.7,
		CandidateLimit:     50,
		JudgeCandidates:    5,
		Policy:             PolicyFirst,
	}
}

// Catalog is the part of the catalog store the resolver needs.
type Catalog interface {
	GetByKey(ctx context.Context, key string) (*model.CanonicalWhiskey, error)
	ScanFirstToken(ctx context.Context, token string, limit int) ([]model.CanonicalWhiskey, error)
	CreateWhiskey(ctx context.Context, draft model.WhiskeyDraft) (*model.CanonicalWhiskey, error)
}

// Candidate is an existing entity scored against the current entry.
// AgeConflict is set when both keys carry different age statements; such
// candidates are only ever offered to the judge.
type Candidate struct {
	Whiskey     model.CanonicalWhiskey
	Edit        float64
	Token       float64
	AgeConflict bool
}

// Match is the outcome of the cascade for one entry. Exactly one of
// Whiskey and Draft is set.
type Match struct {
	BaseName     string
	PickInfo     string
	CanonicalKey string
	Tier         Tier
	Score        float64
	Whiskey      *model.CanonicalWhiskey
	Draft        *model.WhiskeyDraft
}

// Resolution is the outcome of FindOrCreate.
type Resolution struct {
	Whiskey      *model.CanonicalWhiskey
	Created      bool
	Tier         Tier
	PickInfo     string
	CanonicalKey string
}

// Resolver runs the cascade. It holds no per-entry state and is safe for
// concurrent use.
type Resolver struct {
	catalog Catalog
	judge   judge.Judge
	cfg     Config
}

// NewResolver creates a Resolver. A nil judge skips the judge tier.
func NewResolver(c Catalog, j judge.Judge, cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}
	if cfg.JudgeCandidates <= 0 {
		cfg.JudgeCandidates = def.JudgeCandidates
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyFirst
	}
	return &Resolver{catalog: c, judge: j, cfg: cfg}
}

// Match runs the cascade without writing to the catalog.
func (r *Resolver) Match(ctx context.Context, entry model.RawExtractedEntry) (*Match, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return nil, WithKind(ErrInputRejected, eris.New("resolve: empty name"))
	}
	base, pick := normalize.ParsePick(entry.Name)
	key := normalize.Normalize(base)
	if key == "" {
		return nil, WithKind(ErrInputRejected, eris.Errorf("resolve: %q has no canonical key", entry.Name))
	}
	m := &Match{BaseName: base, PickInfo: pick, CanonicalKey: key}

	if w, err := r.exact(ctx, key); err != nil {
		return nil, err
	} else if w != nil {
		m.Tier, m.Score, m.Whiskey = TierExact, 1, w
		r.logHit(m)
		return m, nil
	}

	candidates, err := r.candidates(ctx, key)
	if err != nil {
		return nil, err
	}

	if c := r.pick(candidates, func(c Candidate) float64 { return c.Edit }, r.cfg.FuzzyThreshold); c != nil {
		m.Tier, m.Score, m.Whiskey = TierFuzzy, c.Edit, &c.Whiskey
		r.logHit(m)
		return m, nil
	}
	if c := r.pick(candidates, func(c Candidate) float64 { return c.Token }, r.cfg.TokenThreshold); c != nil {
		m.Tier, m.Score, m.Whiskey = TierToken, c.Token, &c.Whiskey
		r.logHit(m)
		return m, nil
	}

	if r.judge != nil {
		c, confidence, err := r.askJudge(ctx, base, candidates)
		if err != nil {
			return nil, err
		}
		if c != nil {
			m.Tier, m.Score, m.Whiskey = TierJudge, confidence, &c.Whiskey
			r.logHit(m)
			return m, nil
		}
	}

	m.Tier = TierNew
	m.Draft = newDraft(base, key, pick, entry)
	return m, nil
}

// FindOrCreate resolves entry to an existing entity or creates one. A create
// that loses a race on the canonical key, or on its age-statement variant,
// adopts the winner.
func (r *Resolver) FindOrCreate(ctx context.Context, entry model.RawExtractedEntry) (*Resolution, error) {
	m, err := r.Match(ctx, entry)
	if err != nil {
		return nil, err
	}
	res := &Resolution{Tier: m.Tier, PickInfo: m.PickInfo, CanonicalKey: m.CanonicalKey}
	if m.Whiskey != nil {
		res.Whiskey = m.Whiskey
		return res, nil
	}

	created, err := r.catalog.CreateWhiskey(ctx, *m.Draft)
	switch {
	case err == nil:
		zap.L().Info("resolve: created whiskey",
			zap.String("canonical_key", created.CanonicalKey),
			zap.String("display_name", created.DisplayName),
			zap.String("whiskey_id", created.ID),
		)
		res.Whiskey, res.Created = created, true
		return res, nil
	case errors.Is(err, catalog.ErrConflict):
		// The winner may hold the key itself or its age-statement variant.
		winner, gerr := r.exact(ctx, m.CanonicalKey)
		if gerr != nil {
			return nil, gerr
		}
		if winner == nil {
			return nil, WithKind(ErrRaceLost, eris.Errorf("resolve: %q vanished after conflict", m.CanonicalKey))
		}
		zap.L().Debug("resolve: adopted concurrent insert",
			zap.String("canonical_key", m.CanonicalKey),
			zap.String("whiskey_id", winner.ID),
		)
		res.Whiskey, res.Tier = winner, TierConflict
		return res, nil
	default:
		return nil, WithKind(ErrCatalogUnavailable, eris.Wrap(err, "resolve: create whiskey"))
	}
}

// exact looks up key, then its age-statement variant.
func (r *Resolver) exact(ctx context.Context, key string) (*model.CanonicalWhiskey, error) {
	for _, k := range []string{key, normalize.AgeVariant(key)} {
		if k == "" {
			continue
		}
		w, err := r.catalog.GetByKey(ctx, k)
		if err != nil {
			return nil, WithKind(ErrCatalogUnavailable, eris.Wrap(err, "resolve: exact lookup"))
		}
		if w != nil {
			return w, nil
		}
	}
	return nil, nil
}

// candidates loads and scores entities sharing key's first token.
func (r *Resolver) candidates(ctx context.Context, key string) ([]Candidate, error) {
	token := firstToken(key)
	if token == "" {
		return nil, nil
	}
	found, err := r.catalog.ScanFirstToken(ctx, token, r.cfg.CandidateLimit)
	if err != nil {
		return nil, WithKind(ErrCatalogUnavailable, eris.Wrap(err, "resolve: candidate scan"))
	}

	age := normalize.AgeOf(key)
	out := make([]Candidate, 0, len(found))
	for _, w := range found {
		if firstToken(w.CanonicalKey) != token || w.CanonicalKey == key {
			continue
		}
		other := normalize.AgeOf(w.CanonicalKey)
		out = append(out, Candidate{
			Whiskey:     w,
			Edit:        similarity.EditRatio(key, w.CanonicalKey),
			Token:       similarity.TokenRatio(key, w.CanonicalKey),
			AgeConflict: age != "" && other != "" && age != other,
		})
		if len(out) == r.cfg.CandidateLimit {
			break
		}
	}
	return out, nil
}

// pick returns the qualifying candidate chosen by the configured policy.
func (r *Resolver) pick(cands []Candidate, score func(Candidate) float64, threshold float64) *Candidate {
	var best *Candidate
	for i := range cands {
		s := score(cands[i])
		if s < threshold || cands[i].AgeConflict {
			continue
		}
		if r.cfg.Policy != PolicyBest {
			return &cands[i]
		}
		if best == nil || s > score(*best) {
			best = &cands[i]
		}
	}
	return best
}

// askJudge consults the judge on the loosely similar candidates. name is the
// entry's base name with any pick designation stripped, compared against each
// candidate's stored display name, which was created from a base name too. A
// judge failure aborts resolution of the entry rather than falling through to
// creation.
func (r *Resolver) askJudge(ctx context.Context, name string, cands []Candidate) (*Candidate, float64, error) {
	admitted := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Edit >= r.cfg.JudgeEditFloor || c.Token >= r.cfg.JudgeTokenFloor {
			admitted = append(admitted, c)
		}
	}
	if r.cfg.Policy == PolicyBest {
		sort.SliceStable(admitted, func(i, j int) bool {
			return max(admitted[i].Edit, admitted[i].Token) > max(admitted[j].Edit, admitted[j].Token)
		})
	}
	if len(admitted) > r.cfg.JudgeCandidates {
		admitted = admitted[:r.cfg.JudgeCandidates]
	}

	for i := range admitted {
		c := admitted[i]
		v, err := r.judge.Compare(ctx, name, c.Whiskey.DisplayName)
		if err != nil {
			return nil, 0, WithKind(ErrJudgeUnavailable, eris.Wrapf(err, "resolve: judge %q vs %q", name, c.Whiskey.DisplayName))
		}
		if v.SameProduct && v.Confidence > r.cfg.JudgeMinConfidence {
			return &c, v.Confidence, nil
		}
	}
	return nil, 0, nil
}

func (r *Resolver) logHit(m *Match) {
	zap.L().Debug("resolve: matched",
		zap.String("tier", string(m.Tier)),
		zap.String("canonical_key", m.CanonicalKey),
		zap.String("matched_key", m.Whiskey.CanonicalKey),
		zap.String("whiskey_id", m.Whiskey.ID),
		zap.Float64("score", m.Score),
	)
}

func newDraft(base, key, pick string, e model.RawExtractedEntry) *model.WhiskeyDraft {
	d := &model.WhiskeyDraft{
		DisplayName:  base,
		CanonicalKey: key,
		ProductType:  model.ProductOther,
		Age:          e.Age,
		ABV:          e.ABV,
	}
	if e.Distillery != nil && strings.TrimSpace(*e.Distillery) != "" {
		distillery := strings.TrimSpace(*e.Distillery)
		d.Distillery = &distillery
	}
	if e.ProductType != nil && e.ProductType.Valid() {
		d.ProductType = *e.ProductType
	}
	if pick != "" {
		desc := "Pick: " + pick
		d.Description = &desc
	}
	return d
}

func firstToken(key string) string {
	if i := strings.IndexByte(key, ' '); i >= 0 {
		return key[:i]
	}
	return key
}

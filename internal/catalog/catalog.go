// Package catalog persists canonical whiskeys and per-bar availability facts.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spirits-catalog/internal/model"
)

// ErrConflict is returned by CreateWhiskey when another entity already owns
// the draft's canonical key or its identity key (see normalize.IdentityKey).
var ErrConflict = eris.New("catalog: canonical key already exists")

// Store is the catalog collaborator used by resolution and ingestion.
type Store interface {
	// GetByKey returns the entity with exactly this canonical key, or nil.
	GetByKey(ctx context.Context, key string) (*model.CanonicalWhiskey, error)
	// ScanFirstToken returns up to limit entities whose key is token or
	// begins with token followed by a space, ordered by canonical key.
	ScanFirstToken(ctx context.Context, token string, limit int) ([]model.CanonicalWhiskey, error)
	// CreateWhiskey inserts a draft. It returns ErrConflict when the
	// canonical key or its identity key is taken.
	CreateWhiskey(ctx context.Context, draft model.WhiskeyDraft) (*model.CanonicalWhiskey, error)
	// FillMissing sets null fields of an entity from patch.
	FillMissing(ctx context.Context, id string, patch model.WhiskeyPatch) error

	// UpsertAvailability inserts or replaces the fact for (BarID, WhiskeyID)
	// and clears its stale flag.
	UpsertAvailability(ctx context.Context, fact model.BarAvailabilityFact) error
	// GetAvailability returns the fact for a pair, or nil.
	GetAvailability(ctx context.Context, barID, whiskeyID string) (*model.BarAvailabilityFact, error)
	// MarkStale flags every fact of barID last seen before cutoff and
	// returns how many changed.
	MarkStale(ctx context.Context, barID string, cutoff time.Time) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// likeEscaper escapes LIKE metacharacters; patterns use ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// firstTokenPattern matches keys that continue past token with a space.
func firstTokenPattern(token string) string {
	return likeEscaper.Replace(token) + " %"
}

func productTypeArg(p *model.ProductType) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

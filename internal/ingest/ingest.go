// Package ingest drives batches of extracted spirit names through the
// resolver and records per-bar availability facts against the result.
package ingest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/spirits-catalog/internal/model"
	"github.com/sells-group/spirits-catalog/internal/resolve"
)

const defaultMaxConcurrency = 8

// Batch is one producer run for one bar.
type Batch struct {
	BarID      string           `json:"bar_id" yaml:"bar_id" validate:"required,nonblank"`
	SourceType model.SourceType `json:"source_type" yaml:"source_type" validate:"required,oneof=text-scrape vision review-mention manual"`
	Confidence float64          `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
	// MarkUnseenStale flags the bar's facts not seen in this run as stale.
	// Set it only for full menu scrapes.
	MarkUnseenStale bool                      `json:"mark_unseen_stale" yaml:"mark_unseen_stale"`
	Entries         []model.RawExtractedEntry `json:"entries" yaml:"entries"`
}

// Validate checks the batch envelope. Entries are validated one by one
// during Run so a malformed entry only costs itself.
func (b Batch) Validate() error {
	return model.Validate(b)
}

// EntryError attributes a skipped or failed entry.
type EntryError struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Err   string `json:"error"`
}

// Summary reports the outcome of a batch.
type Summary struct {
	BarID   string        `json:"bar_id"`
	Total   int           `json:"total"`
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Stale   int64         `json:"stale"`
	Errors  []EntryError  `json:"errors,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Resolver resolves one entry to a catalog entity, creating it if needed.
type Resolver interface {
	FindOrCreate(ctx context.Context, entry model.RawExtractedEntry) (*resolve.Resolution, error)
}

// Store is the catalog surface the orchestrator writes to.
type Store interface {
	FillMissing(ctx context.Context, id string, patch model.WhiskeyPatch) error
	UpsertAvailability(ctx context.Context, fact model.BarAvailabilityFact) error
	MarkStale(ctx context.Context, barID string, cutoff time.Time) (int64, error)
}

// Config tunes the orchestrator.
type Config struct {
	MaxConcurrency int
}

// Orchestrator runs ingestion batches. It holds no state across runs.
type Orchestrator struct {
	resolver Resolver
	store    Store
	cfg      Config
	now      func() time.Time
}

// New creates an Orchestrator.
func New(r Resolver, s Store, cfg Config) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	return &Orchestrator{
		resolver: r,
		store:    s,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// outcome classifies a processed entry.
type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeFailed
)

// Run processes every entry of b. Per-entry errors are counted in the
// summary and never abort the batch; the returned error is reserved for an
// invalid batch or a canceled context.
func (o *Orchestrator) Run(ctx context.Context, b Batch) (*Summary, error) {
	if err := b.Validate(); err != nil {
		return nil, eris.Wrap(err, "ingest: invalid batch")
	}

	log := zap.L().With(
		zap.String("bar_id", b.BarID),
		zap.String("source_type", string(b.SourceType)),
		zap.Int("entries", len(b.Entries)),
	)
	log.Info("ingest: starting batch")

	start := o.now()
	sum := &Summary{BarID: b.BarID, Total: len(b.Entries)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrency)

	for i, entry := range b.Entries {
		g.Go(func() error {
			out, err := o.processEntry(gctx, b, entry)

			mu.Lock()
			defer mu.Unlock()
			switch out {
			case outcomeCreated:
				sum.Created++
			case outcomeUpdated:
				sum.Updated++
			case outcomeSkipped:
				sum.Skipped++
			case outcomeFailed:
				sum.Failed++
			}
			if err != nil {
				sum.Errors = append(sum.Errors, EntryError{
					Index: i,
					Name:  entry.Name,
					Kind:  resolve.Kind(err),
					Err:   err.Error(),
				})
				log.Warn("ingest: entry not recorded",
					zap.Int("index", i),
					zap.String("name", entry.Name),
					zap.String("kind", resolve.Kind(err)),
					zap.Error(err),
				)
			}
			return nil // don't abort other entries
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return sum, eris.Wrap(err, "ingest: batch canceled")
	}

	if b.MarkUnseenStale {
		if sum.Failed > 0 {
			log.Warn("ingest: skipping stale marking after failures", zap.Int("failed", sum.Failed))
		} else {
			n, err := o.store.MarkStale(ctx, b.BarID, start)
			if err != nil {
				return sum, eris.Wrap(err, "ingest: mark stale")
			}
			sum.Stale = n
		}
	}

	slices.SortFunc(sum.Errors, func(a, b EntryError) int { return a.Index - b.Index })
	sum.Elapsed = o.now().Sub(start)
	log.Info("ingest: batch complete",
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int64("stale", sum.Stale),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}

func (o *Orchestrator) processEntry(ctx context.Context, b Batch, entry model.RawExtractedEntry) (outcome, error) {
	if err := entry.Validate(); err != nil {
		return outcomeSkipped, resolve.WithKind(resolve.ErrInputRejected, eris.Wrap(err, "ingest: validate entry"))
	}

	res, err := o.resolver.FindOrCreate(ctx, entry)
	if err != nil {
		switch resolve.Kind(err) {
		case "input_rejected", "race_lost":
			return outcomeSkipped, err
		default:
			return outcomeFailed, err
		}
	}

	if !res.Created {
		if patch := res.Whiskey.MissingFrom(entry); !patch.Empty() {
			if err := o.store.FillMissing(ctx, res.Whiskey.ID, patch); err != nil {
				zap.L().Warn("ingest: fill missing fields failed",
					zap.String("whiskey_id", res.Whiskey.ID),
					zap.Error(err),
				)
			}
		}
	}

	fact := model.BarAvailabilityFact{
		BarID:      b.BarID,
		WhiskeyID:  res.Whiskey.ID,
		Price:      entry.Price,
		PourSize:   entry.PourSize,
		Available:  true,
		Notes:      factNotes(entry.Notes, res.PickInfo),
		SourceType: b.SourceType,
		Confidence: b.Confidence,
		LastSeenAt: o.now(),
	}
	if err := o.store.UpsertAvailability(ctx, fact); err != nil {
		return outcomeFailed, resolve.WithKind(resolve.ErrCatalogUnavailable, eris.Wrap(err, "ingest: upsert availability"))
	}

	if res.Created {
		return outcomeCreated, nil
	}
	return outcomeUpdated, nil
}

// factNotes joins producer notes with the pick designation.
func factNotes(notes *string, pick string) *string {
	var parts []string
	if notes != nil && strings.TrimSpace(*notes) != "" {
		parts = append(parts, strings.TrimSpace(*notes))
	}
	if pick != "" {
		parts = append(parts, "Pick: "+pick)
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, "; ")
	return &joined
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/spirits-catalog/internal/model"
	"github.com/sells-group/spirits-catalog/internal/normalize"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas below are per connection, and SQLite admits one writer.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS whiskeys (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	canonical_key TEXT NOT NULL UNIQUE,
	identity_key  TEXT NOT NULL UNIQUE,
	distillery    TEXT,
	product_type  TEXT NOT NULL DEFAULT 'other',
	age           INTEGER,
	abv           REAL,
	description   TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS bar_whiskeys (
	bar_id       TEXT NOT NULL,
	whiskey_id   TEXT NOT NULL REFERENCES whiskeys(id),
	price        REAL,
	pour_size    TEXT,
	available    INTEGER NOT NULL DEFAULT 1,
	notes        TEXT,
	source_type  TEXT NOT NULL,
	confidence   REAL NOT NULL DEFAULT 0,
	is_stale     INTEGER NOT NULL DEFAULT 0,
	last_seen_at DATETIME NOT NULL DEFAULT (datetime('now')),
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (bar_id, whiskey_id)
);

CREATE INDEX IF NOT EXISTS idx_bar_whiskeys_whiskey_id ON bar_whiskeys(whiskey_id);
CREATE INDEX IF NOT EXISTS idx_bar_whiskeys_bar_seen ON bar_whiskeys(bar_id, last_seen_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetByKey(ctx context.Context, key string) (*model.CanonicalWhiskey, error) {
	w, err := scanWhiskey(s.db.QueryRowContext(ctx,
		`SELECT `+whiskeyColumns+` FROM whiskeys WHERE canonical_key = ?`,
		key,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get whiskey %q", key)
	}
	return w, nil
}

func (s *SQLiteStore) ScanFirstToken(ctx context.Context, token string, limit int) ([]model.CanonicalWhiskey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+whiskeyColumns+` FROM whiskeys
		 WHERE canonical_key = ? OR canonical_key LIKE ? ESCAPE '\'
		 ORDER BY canonical_key LIMIT ?`,
		token, firstTokenPattern(token), limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: scan whiskeys %q", token)
	}
	defer rows.Close()

	var out []model.CanonicalWhiskey
	for rows.Next() {
		w, err := scanWhiskey(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan whiskey row")
		}
		out = append(out, *w)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: scan whiskeys iterate")
}

func (s *SQLiteStore) CreateWhiskey(ctx context.Context, draft model.WhiskeyDraft) (*model.CanonicalWhiskey, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	productType := draft.ProductType
	if productType == "" {
		productType = model.ProductOther
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO whiskeys (`+whiskeyColumns+`, identity_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		id, draft.DisplayName, draft.CanonicalKey, draft.Distillery, string(productType),
		draft.Age, draft.ABV, draft.Description, now, now, normalize.IdentityKey(draft.CanonicalKey),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert whiskey %q", draft.CanonicalKey)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, ErrConflict
	}

	return &model.CanonicalWhiskey{
		ID:           id,
		DisplayName:  draft.DisplayName,
		CanonicalKey: draft.CanonicalKey,
		Distillery:   draft.Distillery,
		ProductType:  productType,
		Age:          draft.Age,
		ABV:          draft.ABV,
		Description:  draft.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) FillMissing(ctx context.Context, id string, patch model.WhiskeyPatch) error {
	if patch.Empty() {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE whiskeys SET
			distillery = COALESCE(distillery, ?),
			product_type = CASE WHEN product_type = 'other' THEN COALESCE(?, product_type) ELSE product_type END,
			age = COALESCE(age, ?),
			abv = COALESCE(abv, ?),
			updated_at = ?
		 WHERE id = ?`,
		patch.Distillery, productTypeArg(patch.ProductType), patch.Age, patch.ABV, time.Now().UTC(), id,
	)
	return eris.Wrapf(err, "sqlite: fill whiskey %s", id)
}

func (s *SQLiteStore) UpsertAvailability(ctx context.Context, f model.BarAvailabilityFact) error {
	now := time.Now().UTC()
	seen := f.LastSeenAt
	if seen.IsZero() {
		seen = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bar_whiskeys (bar_id, whiskey_id, price, pour_size, available, notes, source_type, confidence, is_stale, last_seen_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		 ON CONFLICT (bar_id, whiskey_id) DO UPDATE SET
			price = excluded.price,
			pour_size = excluded.pour_size,
			available = excluded.available,
			notes = excluded.notes,
			source_type = excluded.source_type,
			confidence = excluded.confidence,
			is_stale = 0,
			last_seen_at = excluded.last_seen_at,
			updated_at = excluded.updated_at`,
		f.BarID, f.WhiskeyID, f.Price, f.PourSize, f.Available, f.Notes, string(f.SourceType), f.Confidence, seen.UTC(), now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert availability %s/%s", f.BarID, f.WhiskeyID)
}

func (s *SQLiteStore) GetAvailability(ctx context.Context, barID, whiskeyID string) (*model.BarAvailabilityFact, error) {
	var f model.BarAvailabilityFact
	var sourceType string
	err := s.db.QueryRowContext(ctx,
		`SELECT bar_id, whiskey_id, price, pour_size, available, notes, source_type, confidence, is_stale, last_seen_at, created_at, updated_at
		 FROM bar_whiskeys WHERE bar_id = ? AND whiskey_id = ?`,
		barID, whiskeyID,
	).Scan(&f.BarID, &f.WhiskeyID, &f.Price, &f.PourSize, &f.Available, &f.Notes, &sourceType,
		&f.Confidence, &f.IsStale, &f.LastSeenAt, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get availability %s/%s", barID, whiskeyID)
	}
	f.SourceType = model.SourceType(sourceType)
	return &f, nil
}

func (s *SQLiteStore) MarkStale(ctx context.Context, barID string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bar_whiskeys SET is_stale = 1, updated_at = ?
		 WHERE bar_id = ? AND last_seen_at < ? AND is_stale = 0`,
		time.Now().UTC(), barID, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: mark stale %s", barID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/spirits-catalog/internal/db"
	"github.com/sells-group/spirits-catalog/internal/model"
	"github.com/sells-group/spirits-catalog/internal/normalize"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS whiskeys (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	canonical_key TEXT NOT NULL UNIQUE,
	identity_key  TEXT NOT NULL UNIQUE,
	distillery    TEXT,
	product_type  TEXT NOT NULL DEFAULT 'other',
	age           INTEGER,
	abv           DOUBLE PRECISION,
	description   TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_whiskeys_canonical_key_pattern ON whiskeys(canonical_key text_pattern_ops);

CREATE TABLE IF NOT EXISTS bar_whiskeys (
	bar_id       TEXT NOT NULL,
	whiskey_id   TEXT NOT NULL REFERENCES whiskeys(id),
	price        DOUBLE PRECISION,
	pour_size    TEXT,
	available    BOOLEAN NOT NULL DEFAULT true,
	notes        TEXT,
	source_type  TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_stale     BOOLEAN NOT NULL DEFAULT false,
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (bar_id, whiskey_id)
);

CREATE INDEX IF NOT EXISTS idx_bar_whiskeys_whiskey_id ON bar_whiskeys(whiskey_id);
CREATE INDEX IF NOT EXISTS idx_bar_whiskeys_bar_seen ON bar_whiskeys(bar_id, last_seen_at);
`

const whiskeyColumns = `id, display_name, canonical_key, distillery, product_type, age, abv, description, created_at, updated_at`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetByKey(ctx context.Context, key string) (*model.CanonicalWhiskey, error) {
	w, err := scanWhiskey(s.pool.QueryRow(ctx,
		`SELECT `+whiskeyColumns+` FROM whiskeys WHERE canonical_key = $1`,
		key,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get whiskey %q", key)
	}
	return w, nil
}

func (s *PostgresStore) ScanFirstToken(ctx context.Context, token string, limit int) ([]model.CanonicalWhiskey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+whiskeyColumns+` FROM whiskeys
		 WHERE canonical_key = $1 OR canonical_key LIKE $2 ESCAPE '\'
		 ORDER BY canonical_key LIMIT $3`,
		token, firstTokenPattern(token), limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: scan whiskeys %q", token)
	}
	defer rows.Close()

	var out []model.CanonicalWhiskey
	for rows.Next() {
		w, err := scanWhiskey(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan whiskey row")
		}
		out = append(out, *w)
	}
	return out, eris.Wrap(rows.Err(), "postgres: scan whiskeys iterate")
}

func (s *PostgresStore) CreateWhiskey(ctx context.Context, draft model.WhiskeyDraft) (*model.CanonicalWhiskey, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	productType := draft.ProductType
	if productType == "" {
		productType = model.ProductOther
	}

	var got string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO whiskeys (`+whiskeyColumns+`, identity_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT DO NOTHING
		 RETURNING id`,
		id, draft.DisplayName, draft.CanonicalKey, draft.Distillery, string(productType),
		draft.Age, draft.ABV, draft.Description, now, now, normalize.IdentityKey(draft.CanonicalKey),
	).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) || db.IsUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert whiskey %q", draft.CanonicalKey)
	}

	return &model.CanonicalWhiskey{
		ID:           got,
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

func (s *PostgresStore) FillMissing(ctx context.Context, id string, patch model.WhiskeyPatch) error {
	if patch.Empty() {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE whiskeys SET
			distillery = COALESCE(distillery, $2),
			product_type = CASE WHEN product_type = 'other' THEN COALESCE($3, product_type) ELSE product_type END,
			age = COALESCE(age, $4),
			abv = COALESCE(abv, $5),
			updated_at = $6
		 WHERE id = $1`,
		id, patch.Distillery, productTypeArg(patch.ProductType), patch.Age, patch.ABV, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: fill whiskey %s", id)
}

func (s *PostgresStore) UpsertAvailability(ctx context.Context, f model.BarAvailabilityFact) error {
	now := time.Now().UTC()
	seen := f.LastSeenAt
	if seen.IsZero() {
		seen = now
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bar_whiskeys (bar_id, whiskey_id, price, pour_size, available, notes, source_type, confidence, is_stale, last_seen_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10, $10)
		 ON CONFLICT (bar_id, whiskey_id) DO UPDATE SET
			price = EXCLUDED.price,
			pour_size = EXCLUDED.pour_size,
			available = EXCLUDED.available,
			notes = EXCLUDED.notes,
			source_type = EXCLUDED.source_type,
			confidence = EXCLUDED.confidence,
			is_stale = false,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at`,
		f.BarID, f.WhiskeyID, f.Price, f.PourSize, f.Available, f.Notes, string(f.SourceType), f.Confidence, seen, now,
	)
	return eris.Wrapf(err, "postgres: upsert availability %s/%s", f.BarID, f.WhiskeyID)
}

func (s *PostgresStore) GetAvailability(ctx context.Context, barID, whiskeyID string) (*model.BarAvailabilityFact, error) {
	var f model.BarAvailabilityFact
	var sourceType string
	err := s.pool.QueryRow(ctx,
		`SELECT bar_id, whiskey_id, price, pour_size, available, notes, source_type, confidence, is_stale, last_seen_at, created_at, updated_at
		 FROM bar_whiskeys WHERE bar_id = $1 AND whiskey_id = $2`,
		barID, whiskeyID,
	).Scan(&f.BarID, &f.WhiskeyID, &f.Price, &f.PourSize, &f.Available, &f.Notes, &sourceType,
		&f.Confidence, &f.IsStale, &f.LastSeenAt, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get availability %s/%s", barID, whiskeyID)
	}
	f.SourceType = model.SourceType(sourceType)
	return &f, nil
}

func (s *PostgresStore) MarkStale(ctx context.Context, barID string, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bar_whiskeys SET is_stale = true, updated_at = $3
		 WHERE bar_id = $1 AND last_seen_at < $2 AND is_stale = false`,
		barID, cutoff, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: mark stale %s", barID)
	}
	return tag.RowsAffected(), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanWhiskey(row scannable) (*model.CanonicalWhiskey, error) {
	var w model.CanonicalWhiskey
	var productType string
	if err := row.Scan(&w.ID, &w.DisplayName, &w.CanonicalKey, &w.Distillery, &productType,
		&w.Age, &w.ABV, &w.Description, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.ProductType = model.ProductType(productType)
	return &w, nil
}

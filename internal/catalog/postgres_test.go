package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spirits-catalog/internal/model"
)

var whiskeyCols = []string{"id", "display_name", "canonical_key", "distillery", "product_type", "age", "abv", "description", "created_at", "updated_at"}

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS whiskeys`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByKey(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, display_name, canonical_key, .* FROM whiskeys WHERE canonical_key = \$1`).
		WithArgs("laphroaig 10 year").
		WillReturnRows(pgxmock.NewRows(whiskeyCols).AddRow(
			"w-1", "Laphroaig 10 Year", "laphroaig 10 year", ptr("Laphroaig"), "scotch",
			ptr(10), (*float64)(nil), (*string)(nil), now, now,
		))

	w, err := s.GetByKey(context.Background(), "laphroaig 10 year")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "w-1", w.ID)
	assert.Equal(t, "Laphroaig 10 Year", w.DisplayName)
	assert.Equal(t, model.ProductScotch, w.ProductType)
	assert.Equal(t, "Laphroaig", *w.Distillery)
	assert.Equal(t, 10, *w.Age)
	assert.Nil(t, w.ABV)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByKey_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM whiskeys WHERE canonical_key = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	w, err := s.GetByKey(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByKey_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM whiskeys WHERE canonical_key = \$1`).
		WithArgs("laphroaig 10 year").
		WillReturnError(errors.New("connection refused"))

	_, err := s.GetByKey(context.Background(), "laphroaig 10 year")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: get whiskey")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ScanFirstToken(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)FROM whiskeys WHERE canonical_key = \$1 OR canonical_key LIKE \$2 ESCAPE .* ORDER BY canonical_key LIMIT \$3`).
		WithArgs("ardbeg", "ardbeg %", 50).
		WillReturnRows(pgxmock.NewRows(whiskeyCols).
			AddRow("w-1", "Ardbeg 10", "ardbeg 10", (*string)(nil), "scotch", ptr(10), ptr(46.0), (*string)(nil), now, now).
			AddRow("w-2", "Ardbeg Uigeadail", "ardbeg uigeadail", (*string)(nil), "scotch", (*int)(nil), (*float64)(nil), (*string)(nil), now, now))

	got, err := s.ScanFirstToken(context.Background(), "ardbeg", 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ardbeg 10", got[0].CanonicalKey)
	assert.Equal(t, 46.0, *got[0].ABV)
	assert.Equal(t, "ardbeg uigeadail", got[1].CanonicalKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ScanFirstToken_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM whiskeys`).
		WithArgs("ardbeg", "ardbeg %", 50).
		WillReturnError(errors.New("timeout"))

	_, err := s.ScanFirstToken(context.Background(), "ardbeg", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: scan whiskeys")
}

func TestPostgresStore_CreateWhiskey(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`(?s)INSERT INTO whiskeys .* ON CONFLICT DO NOTHING RETURNING id`).
		WithArgs(pgxmock.AnyArg(), "Laphroaig 10 Year", "laphroaig 10 year", pgxmock.AnyArg(), "scotch",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "laphroaig 10").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("w-new"))

	w, err := s.CreateWhiskey(context.Background(), model.WhiskeyDraft{
		DisplayName:  "Laphroaig 10 Year",
		CanonicalKey: "laphroaig 10 year",
		ProductType:  model.ProductScotch,
		Age:          ptr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "w-new", w.ID)
	assert.Equal(t, "laphroaig 10 year", w.CanonicalKey)
	assert.Equal(t, 10, *w.Age)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateWhiskey_Conflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"do nothing returns no rows", pgx.ErrNoRows},
		{"unique violation", &pgconn.PgError{Code: "23505"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockPostgresStore(t)
			mock.ExpectQuery(`INSERT INTO whiskeys`).
				WithArgs(pgxmock.AnyArg(), "Macallan 12", "macallan 12", pgxmock.AnyArg(), "other",
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "macallan 12").
				WillReturnError(tt.err)

			_, err := s.CreateWhiskey(context.Background(), model.WhiskeyDraft{DisplayName: "Macallan 12", CanonicalKey: "macallan 12"})
			assert.ErrorIs(t, err, ErrConflict)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_CreateWhiskey_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`INSERT INTO whiskeys`).
		WillReturnError(errors.New("disk full"))

	_, err := s.CreateWhiskey(context.Background(), model.WhiskeyDraft{DisplayName: "x", CanonicalKey: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "postgres: insert whiskey")
}

func TestPostgresStore_FillMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`(?s)UPDATE whiskeys SET distillery = COALESCE\(distillery, \$2\).* WHERE id = \$1`).
		WithArgs("w-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FillMissing(context.Background(), "w-1", model.WhiskeyPatch{Age: ptr(12)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FillMissing_EmptyPatchSkipsQuery(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	require.NoError(t, s.FillMissing(context.Background(), "w-1", model.WhiskeyPatch{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertAvailability(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	seen := time.Date(2026, 10, 2, 20, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)INSERT INTO bar_whiskeys .* ON CONFLICT \(bar_id, whiskey_id\) DO UPDATE SET .* is_stale = false`).
		WithArgs("bar-1", "w-1", pgxmock.AnyArg(), pgxmock.AnyArg(), true, pgxmock.AnyArg(),
			"text-scrape", 0.8, seen, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertAvailability(context.Background(), model.BarAvailabilityFact{
		BarID:      "bar-1",
		WhiskeyID:  "w-1",
		Price:      ptr(12.0),
		Available:  true,
		SourceType: model.SourceTextScrape,
		Confidence: 0.8,
		LastSeenAt: seen,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAvailability_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM bar_whiskeys WHERE bar_id = \$1 AND whiskey_id = \$2`).
		WithArgs("bar-1", "w-1").
		WillReturnError(pgx.ErrNoRows)

	f, err := s.GetAvailability(context.Background(), "bar-1", "w-1")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkStale(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cutoff := time.Date(2026, 10, 2, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)UPDATE bar_whiskeys SET is_stale = true.* WHERE bar_id = \$1 AND last_seen_at < \$2`).
		WithArgs("bar-1", cutoff, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := s.MarkStale(context.Background(), "bar-1", cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFirstTokenPattern(t *testing.T) {
	assert.Equal(t, "ardbeg %", firstTokenPattern("ardbeg"))
	assert.Equal(t, `100\% %`, firstTokenPattern("100%"))
	assert.Equal(t, `a\_b %`, firstTokenPattern("a_b"))
	assert.Equal(t, `a\\b %`, firstTokenPattern(`a\b`))
}

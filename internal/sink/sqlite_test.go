package sink

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteSink {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "soundrank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteSinkWriteAndCounts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	res, err := s.Write(ctx, sampleTables())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows[BronzeTable])
	assert.Equal(t, int64(2), res.Rows[SilverTable])
	assert.Equal(t, int64(2), res.Rows[GoldTable])
	assert.Empty(t, res.Files)

	counts, err := s.Counts(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, res.Rows, counts)
}

func TestSQLiteSinkRewriteReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.Write(ctx, sampleTables())
	require.NoError(t, err)

	tables := sampleTables()
	tables.Bronze = tables.Bronze[:1]
	tables.Silver = tables.Silver[:1]
	tables.Gold = tables.Gold[:1]

	_, err = s.Write(ctx, tables)
	require.NoError(t, err)

	counts, err := s.Counts(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[BronzeTable])
	assert.Equal(t, int64(1), counts[SilverTable])
	assert.Equal(t, int64(1), counts[GoldTable])
}

func TestSQLiteSinkArtistArraysRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.Write(ctx, sampleTables())
	require.NoError(t, err)

	var ids, names string
	row := s.db.QueryRowContext(ctx,
		"SELECT artist_ids, artist_names FROM bronze_daily_tracks WHERE snapshot_date = ? AND rank = 1",
		"2026-08-24")
	require.NoError(t, row.Scan(&ids, &names))

	var gotIDs, gotNames []string
	require.NoError(t, json.Unmarshal([]byte(ids), &gotIDs))
	require.NoError(t, json.Unmarshal([]byte(names), &gotNames))
	assert.Equal(t, []string{"a1", "a2"}, gotIDs)
	assert.Equal(t, []string{"Artist One", "Artist Two"}, gotNames)
}

func TestSQLiteSinkMigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetSinkWriteAndCounts(t *testing.T) {
	dir := t.TempDir()
	s := NewParquet(dir)
	ctx := context.Background()

	res, err := s.Write(ctx, sampleTables())
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Rows[BronzeTable])
	assert.Equal(t, int64(2), res.Rows[SilverTable])
	assert.Equal(t, int64(2), res.Rows[GoldTable])

	wantBronze := filepath.Join(dir, "bronze_daily_tracks_2026-08-24.parquet")
	assert.Equal(t, wantBronze, res.Files[BronzeTable])

	counts, err := s.Counts(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, res.Rows, counts)
}

func TestParquetSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewParquet(dir)

	res, err := s.Write(context.Background(), sampleTables())
	require.NoError(t, err)

	rows, err := parquet.ReadFile[bronzeRecord](res.Files[BronzeTable])
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2026-08-24", rows[0].SnapshotDate)
	assert.Equal(t, "US", rows[0].Market)
	assert.Equal(t, int32(1), rows[0].Rank)
	assert.Equal(t, []string{"a1", "a2"}, rows[0].ArtistIDs)
	assert.Equal(t, []string{"Artist One", "Artist Two"}, rows[0].ArtistNames)
	assert.Equal(t, int32(100), rows[0].Score)

	gold, err := parquet.ReadFile[goldRecord](res.Files[GoldTable])
	require.NoError(t, err)
	require.Len(t, gold, 2)
	assert.Equal(t, "a1", gold[0].ArtistID)
	assert.Equal(t, int32(199), gold[0].TotalScore)
}

func TestParquetSinkRewriteReplaces(t *testing.T) {
	dir := t.TempDir()
	s := NewParquet(dir)
	ctx := context.Background()

	_, err := s.Write(ctx, sampleTables())
	require.NoError(t, err)

	// Second run for the same date with fewer rows must replace the files,
	// not append to them.
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

func TestParquetSinkCountsMissingFiles(t *testing.T) {
	s := NewParquet(t.TempDir())

	counts, err := s.Counts(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[BronzeTable])
	assert.Equal(t, int64(0), counts[SilverTable])
	assert.Equal(t, int64(0), counts[GoldTable])
}

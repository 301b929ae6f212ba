package sink

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresSink(t *testing.T) (*PostgresSink, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresSink{pool: mock}, mock
}

func expectTableUpsert(mock pgxmock.PgxPoolIface, table string, cols []string, rows int64) {
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_` + table + `"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_" + table}, cols).
		WillReturnResult(rows)
	mock.ExpectExec(`INSERT INTO "` + table + `" .* ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", rows))
}

func TestPostgresSinkMigrate(t *testing.T) {
	s, mock := newMockPostgresSink(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS bronze_daily_tracks`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkWrite(t *testing.T) {
	s, mock := newMockPostgresSink(t)
	tables := sampleTables()

	mock.ExpectBegin()
	for _, table := range []string{BronzeTable, SilverTable, GoldTable} {
		mock.ExpectExec(`DELETE FROM ` + table + ` WHERE snapshot_date = \$1`).
			WithArgs(testDay).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
	}
	expectTableUpsert(mock, BronzeTable,
		[]string{"snapshot_date", "market", "playlist_id", "playlist_name", "rank", "track_id", "track_name", "artist_ids", "artist_names", "score"}, 2)
	expectTableUpsert(mock, SilverTable,
		[]string{"snapshot_date", "market", "artist_id", "artist_name", "tracks", "total_score", "best_rank"}, 2)
	expectTableUpsert(mock, GoldTable,
		[]string{"snapshot_date", "artist_id", "artist_name", "markets", "total_score", "best_rank"}, 2)
	mock.ExpectCommit()

	res, err := s.Write(context.Background(), tables)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows[BronzeTable])
	assert.Equal(t, int64(2), res.Rows[SilverTable])
	assert.Equal(t, int64(2), res.Rows[GoldTable])
	assert.Empty(t, res.Files)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkWrite_DeleteFailsRollsBack(t *testing.T) {
	s, mock := newMockPostgresSink(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM bronze_daily_tracks`).
		WithArgs(testDay).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := s.Write(context.Background(), sampleTables())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete stale rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkCounts(t *testing.T) {
	s, mock := newMockPostgresSink(t)

	for _, want := range []int64{2, 2, 2} {
		mock.ExpectQuery(`SELECT count\(\*\) FROM \w+ WHERE snapshot_date = \$1`).
			WithArgs(testDay).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(want))
	}

	counts, err := s.Counts(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		BronzeTable: 2,
		SilverTable: 2,
		GoldTable:   2,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

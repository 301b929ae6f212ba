package sink

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/soundrank/soundrank/internal/db"
	"github.com/soundrank/soundrank/internal/model"
)

var _ Sink = (*PostgresSink)(nil)

// PostgresSink persists snapshots into the relational schema using pgxpool.
type PostgresSink struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresSink with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresSink, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
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
	return &PostgresSink{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS bronze_daily_tracks (
	snapshot_date date,
	market        text,
	playlist_id   text,
	playlist_name text,
	rank          int,
	track_id      text,
	track_name    text,
	artist_ids    text[],
	artist_names  text[],
	score         int,
	PRIMARY KEY (snapshot_date, market, rank)
);

CREATE TABLE IF NOT EXISTS silver_artist_market_daily (
	snapshot_date date,
	market        text,
	artist_id     text,
	artist_name   text,
	tracks        int,
	total_score   int,
	best_rank     int,
	PRIMARY KEY (snapshot_date, market, artist_id)
);

CREATE TABLE IF NOT EXISTS gold_artist_global_daily (
	snapshot_date date,
	artist_id     text,
	artist_name   text,
	markets       int,
	total_score   int,
	best_rank     int,
	PRIMARY KEY (snapshot_date, artist_id)
);

CREATE INDEX IF NOT EXISTS idx_silver_date_market
	ON silver_artist_market_daily (snapshot_date, market);
CREATE INDEX IF NOT EXISTS idx_gold_date
	ON gold_artist_global_daily (snapshot_date);
`

// Migrate ensures the three tables and their indexes exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Write replaces the snapshot date's rows in all three tables inside one
// transaction: stale rows for the date are deleted, then fresh rows are
// bulk-upserted. Either every table lands or none does.
func (s *PostgresSink) Write(ctx context.Context, tables model.Tables) (*WriteResult, error) {
	date := tables.SnapshotDate

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, table := range []string{BronzeTable, SilverTable, GoldTable} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE snapshot_date = $1", date); err != nil {
			return nil, eris.Wrapf(err, "postgres: delete stale rows from %s", table)
		}
	}

	rows := make(map[string]int64, 3)

	n, err := db.BulkUpsertTx(ctx, tx, db.UpsertConfig{
		Table:        BronzeTable,
		Columns:      []string{"snapshot_date", "market", "playlist_id", "playlist_name", "rank", "track_id", "track_name", "artist_ids", "artist_names", "score"},
		ConflictKeys: []string{"snapshot_date", "market", "rank"},
	}, bronzeArgs(tables.Bronze))
	if err != nil {
		return nil, err
	}
	rows[BronzeTable] = n

	n, err = db.BulkUpsertTx(ctx, tx, db.UpsertConfig{
		Table:        SilverTable,
		Columns:      []string{"snapshot_date", "market", "artist_id", "artist_name", "tracks", "total_score", "best_rank"},
		ConflictKeys: []string{"snapshot_date", "market", "artist_id"},
	}, silverArgs(tables.Silver))
	if err != nil {
		return nil, err
	}
	rows[SilverTable] = n

	n, err = db.BulkUpsertTx(ctx, tx, db.UpsertConfig{
		Table:        GoldTable,
		Columns:      []string{"snapshot_date", "artist_id", "artist_name", "markets", "total_score", "best_rank"},
		ConflictKeys: []string{"snapshot_date", "artist_id"},
	}, goldArgs(tables.Gold))
	if err != nil {
		return nil, err
	}
	rows[GoldTable] = n

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit tx")
	}

	zap.L().Info("postgres: snapshot written",
		zap.String("snapshot_date", model.DateString(date)),
		zap.Int64("bronze", rows[BronzeTable]),
		zap.Int64("silver", rows[SilverTable]),
		zap.Int64("gold", rows[GoldTable]),
	)
	return &WriteResult{Rows: rows}, nil
}

// Counts returns per-table row counts for a snapshot date.
func (s *PostgresSink) Counts(ctx context.Context, date time.Time) (map[string]int64, error) {
	counts := make(map[string]int64, 3)
	for _, table := range []string{BronzeTable, SilverTable, GoldTable} {
		var n int64
		row := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+table+" WHERE snapshot_date = $1", date)
		if err := row.Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "postgres: count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func bronzeArgs(rows []model.BronzeRow) [][]any {
	args := make([][]any, 0, len(rows))
	for _, r := range rows {
		args = append(args, []any{
			r.SnapshotDate, r.Market, r.PlaylistID, r.PlaylistName, r.Rank,
			r.TrackID, r.TrackName, r.ArtistIDs, r.ArtistNames, r.Score,
		})
	}
	return args
}

func silverArgs(rows []model.SilverRow) [][]any {
	args := make([][]any, 0, len(rows))
	for _, r := range rows {
		args = append(args, []any{
			r.SnapshotDate, r.Market, r.ArtistID, r.ArtistName,
			r.Tracks, r.TotalScore, r.BestRank,
		})
	}
	return args
}

func goldArgs(rows []model.GoldRow) [][]any {
	args := make([][]any, 0, len(rows))
	for _, r := range rows {
		args = append(args, []any{
			r.SnapshotDate, r.ArtistID, r.ArtistName,
			r.Markets, r.TotalScore, r.BestRank,
		})
	}
	return args
}

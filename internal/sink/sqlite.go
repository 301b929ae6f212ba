package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/soundrank/soundrank/internal/model"
)

var _ Sink = (*SQLiteSink)(nil)

// SQLiteSink persists snapshots into a local SQLite database. Array columns
// are stored as JSON text; snapshot dates as YYYY-MM-DD strings.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteSink, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSink{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bronze_daily_tracks (
	snapshot_date TEXT,
	market        TEXT,
	playlist_id   TEXT,
	playlist_name TEXT,
	rank          INTEGER,
	track_id      TEXT,
	track_name    TEXT,
	artist_ids    TEXT,
	artist_names  TEXT,
	score         INTEGER,
	PRIMARY KEY (snapshot_date, market, rank)
);

CREATE TABLE IF NOT EXISTS silver_artist_market_daily (
	snapshot_date TEXT,
	market        TEXT,
	artist_id     TEXT,
	artist_name   TEXT,
	tracks        INTEGER,
	total_score   INTEGER,
	best_rank     INTEGER,
	PRIMARY KEY (snapshot_date, market, artist_id)
);

CREATE TABLE IF NOT EXISTS gold_artist_global_daily (
	snapshot_date TEXT,
	artist_id     TEXT,
	artist_name   TEXT,
	markets       INTEGER,
	total_score   INTEGER,
	best_rank     INTEGER,
	PRIMARY KEY (snapshot_date, artist_id)
);

CREATE INDEX IF NOT EXISTS idx_silver_date_market
	ON silver_artist_market_daily (snapshot_date, market);
CREATE INDEX IF NOT EXISTS idx_gold_date
	ON gold_artist_global_daily (snapshot_date);
`

// Migrate ensures the three tables and their indexes exist.
func (s *SQLiteSink) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Write replaces the snapshot date's rows in all three tables inside one
// transaction.
func (s *SQLiteSink) Write(ctx context.Context, tables model.Tables) (*WriteResult, error) {
	date := model.DateString(tables.SnapshotDate)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{BronzeTable, SilverTable, GoldTable} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE snapshot_date = ?", date); err != nil {
			return nil, eris.Wrapf(err, "sqlite: delete stale rows from %s", table)
		}
	}

	rows := make(map[string]int64, 3)

	for _, r := range tables.Bronze {
		artistIDs, err := json.Marshal(r.ArtistIDs)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal artist_ids")
		}
		artistNames, err := json.Marshal(r.ArtistNames)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal artist_names")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bronze_daily_tracks
				(snapshot_date, market, playlist_id, playlist_name, rank, track_id, track_name, artist_ids, artist_names, score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (snapshot_date, market, rank) DO UPDATE SET
				playlist_id = excluded.playlist_id,
				playlist_name = excluded.playlist_name,
				track_id = excluded.track_id,
				track_name = excluded.track_name,
				artist_ids = excluded.artist_ids,
				artist_names = excluded.artist_names,
				score = excluded.score`,
			date, r.Market, r.PlaylistID, r.PlaylistName, r.Rank,
			r.TrackID, r.TrackName, string(artistIDs), string(artistNames), r.Score,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert %s", BronzeTable)
		}
		rows[BronzeTable]++
	}

	for _, r := range tables.Silver {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO silver_artist_market_daily
				(snapshot_date, market, artist_id, artist_name, tracks, total_score, best_rank)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (snapshot_date, market, artist_id) DO UPDATE SET
				artist_name = excluded.artist_name,
				tracks = excluded.tracks,
				total_score = excluded.total_score,
				best_rank = excluded.best_rank`,
			date, r.Market, r.ArtistID, r.ArtistName, r.Tracks, r.TotalScore, r.BestRank,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert %s", SilverTable)
		}
		rows[SilverTable]++
	}

	for _, r := range tables.Gold {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gold_artist_global_daily
				(snapshot_date, artist_id, artist_name, markets, total_score, best_rank)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (snapshot_date, artist_id) DO UPDATE SET
				artist_name = excluded.artist_name,
				markets = excluded.markets,
				total_score = excluded.total_score,
				best_rank = excluded.best_rank`,
			date, r.ArtistID, r.ArtistName, r.Markets, r.TotalScore, r.BestRank,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert %s", GoldTable)
		}
		rows[GoldTable]++
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit tx")
	}

	zap.L().Info("sqlite: snapshot written",
		zap.String("snapshot_date", date),
		zap.Int64("bronze", rows[BronzeTable]),
		zap.Int64("silver", rows[SilverTable]),
		zap.Int64("gold", rows[GoldTable]),
	)
	return &WriteResult{Rows: rows}, nil
}

// Counts returns per-table row counts for a snapshot date.
func (s *SQLiteSink) Counts(ctx context.Context, date time.Time) (map[string]int64, error) {
	counts := make(map[string]int64, 3)
	for _, table := range []string{BronzeTable, SilverTable, GoldTable} {
		var n int64
		row := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+table+" WHERE snapshot_date = ?", model.DateString(date))
		if err := row.Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}

// Close closes the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

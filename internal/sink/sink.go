// Package sink persists the three aggregation tables to the configured
// destination: parquet files, PostgreSQL, or SQLite.
package sink

import (
	"context"
	"time"

	"github.com/soundrank/soundrank/internal/model"
)

// Table names shared by every driver.
const (
	BronzeTable = "bronze_daily_tracks"
	SilverTable = "silver_artist_market_daily"
	GoldTable   = "gold_artist_global_daily"
)

// WriteResult reports what a Write persisted.
type WriteResult struct {
	Rows  map[string]int64  `json:"rows"`
	Files map[string]string `json:"files,omitempty"`
}

// Sink persists one run's tables. Write replaces any prior data for the
// same snapshot date; database drivers do so in a single transaction so a
// run lands all three tables or none.
type Sink interface {
	// Migrate prepares the destination (tables and indexes, or the
	// output directory).
	Migrate(ctx context.Context) error

	// Write persists all three tables for tables.SnapshotDate.
	Write(ctx context.Context, tables model.Tables) (*WriteResult, error)

	// Counts returns per-table row counts for a snapshot date.
	Counts(ctx context.Context, date time.Time) (map[string]int64, error)

	Close() error
}

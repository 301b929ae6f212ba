// Package model defines the bronze/silver/gold row types produced by the
// daily chart pipeline.
package model

import "time"

// BronzeRow is one ranked playlist entry for a market on a snapshot date.
// Identity: (SnapshotDate, Market, Rank).
type BronzeRow struct {
	SnapshotDate time.Time `json:"snapshot_date"`
	Market       string    `json:"market"`
	PlaylistID   string    `json:"playlist_id"`
	PlaylistName string    `json:"playlist_name"`
	Rank         int       `json:"rank"`
	TrackID      string    `json:"track_id"`
	TrackName    string    `json:"track_name"`
	ArtistIDs    []string  `json:"artist_ids"`
	ArtistNames  []string  `json:"artist_names"`
	Score        int       `json:"score"`
}

// SilverRow is the per-market daily rollup for one artist.
// Identity: (SnapshotDate, Market, ArtistID).
type SilverRow struct {
	SnapshotDate time.Time `json:"snapshot_date"`
	Market       string    `json:"market"`
	ArtistID     string    `json:"artist_id"`
	ArtistName   string    `json:"artist_name"`
	Tracks       int       `json:"tracks"`
	TotalScore   int       `json:"total_score"`
	BestRank     int       `json:"best_rank"`
}

// GoldRow is the global daily rollup for one artist across all markets.
// Identity: (SnapshotDate, ArtistID).
type GoldRow struct {
	SnapshotDate time.Time `json:"snapshot_date"`
	ArtistID     string    `json:"artist_id"`
	ArtistName   string    `json:"artist_name"`
	Markets      int       `json:"markets"`
	TotalScore   int       `json:"total_score"`
	BestRank     int       `json:"best_rank"`
}

// Tables bundles the three aggregation tiers for one snapshot date. Each
// slice is built once by its pipeline step and never mutated afterwards.
type Tables struct {
	SnapshotDate time.Time   `json:"snapshot_date"`
	Bronze       []BronzeRow `json:"bronze"`
	Silver       []SilverRow `json:"silver"`
	Gold         []GoldRow   `json:"gold"`
}

// Day truncates t to UTC midnight. Snapshot dates carry no time component.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateString formats a snapshot date the way filenames and SQL bindings
// expect it.
func DateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Package transform builds the bronze, silver and gold tables from raw
// market snapshots. Each step is a pure function of its input.
package transform

import (
	"time"

	"github.com/soundrank/soundrank/internal/extract"
	"github.com/soundrank/soundrank/internal/model"
)

// maxRank anchors the score scale. Rank 1 scores maxRank, rank 2 scores
// maxRank-1, and so on, which keeps scores comparable across markets with
// playlists of different lengths.
const maxRank = 100

// Score converts a rank into its aggregation weight. Strictly decreasing
// in rank; ranks beyond maxRank go negative so equal scores can never
// appear within one market.
func Score(rank int) int {
	return maxRank - rank + 1
}

// ToBronze flattens market snapshots into one bronze row per (market, rank).
// Entries without a track ID are dropped without consuming a rank.
func ToBronze(snaps []extract.MarketSnapshot, snapshotDate time.Time) []model.BronzeRow {
	snapshotDate = model.Day(snapshotDate)

	var rows []model.BronzeRow
	for _, snap := range snaps {
		rank := 1
		for _, track := range snap.Tracks {
			if track.TrackID == "" {
				continue
			}
			rows = append(rows, model.BronzeRow{
				SnapshotDate: snapshotDate,
				Market:       snap.Market,
				PlaylistID:   snap.PlaylistID,
				PlaylistName: snap.PlaylistName,
				Rank:         rank,
				TrackID:      track.TrackID,
				TrackName:    track.TrackName,
				ArtistIDs:    track.ArtistIDs,
				ArtistNames:  track.ArtistNames,
				Score:        Score(rank),
			})
			rank++
		}
	}
	return rows
}

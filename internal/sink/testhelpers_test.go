package sink

import (
	"time"

	"github.com/soundrank/soundrank/internal/model"
)

var testDay = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

// sampleTables builds a small consistent snapshot: two bronze rows in one
// market, the resulting silver rollup and the global gold rollup.
func sampleTables() model.Tables {
	return model.Tables{
		SnapshotDate: testDay,
		Bronze: []model.BronzeRow{
			{
				SnapshotDate: testDay, Market: "US", PlaylistID: "pl-us", PlaylistName: "Top 50 - USA",
				Rank: 1, TrackID: "t1", TrackName: "One",
				ArtistIDs: []string{"a1", "a2"}, ArtistNames: []string{"Artist One", "Artist Two"},
				Score: 100,
			},
			{
				SnapshotDate: testDay, Market: "US", PlaylistID: "pl-us", PlaylistName: "Top 50 - USA",
				Rank: 2, TrackID: "t2", TrackName: "Two",
				ArtistIDs: []string{"a1"}, ArtistNames: []string{"Artist One"},
				Score: 99,
			},
		},
		Silver: []model.SilverRow{
			{SnapshotDate: testDay, Market: "US", ArtistID: "a1", ArtistName: "Artist One", Tracks: 2, TotalScore: 199, BestRank: 1},
			{SnapshotDate: testDay, Market: "US", ArtistID: "a2", ArtistName: "Artist Two", Tracks: 1, TotalScore: 100, BestRank: 1},
		},
		Gold: []model.GoldRow{
			{SnapshotDate: testDay, ArtistID: "a1", ArtistName: "Artist One", Markets: 1, TotalScore: 199, BestRank: 1},
			{SnapshotDate: testDay, ArtistID: "a2", ArtistName: "Artist Two", Markets: 1, TotalScore: 100, BestRank: 1},
		},
	}
}

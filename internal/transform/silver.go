package transform

import (
	"sort"

	"github.com/soundrank/soundrank/internal/model"
)

// artistMention is one (bronze row, artist) pairing. A bronze row with k
// artists expands into k mentions so every listed artist is credited
// independently.
type artistMention struct {
	market     string
	artistID   string
	artistName string
	rank       int
	score      int
}

// ToSilver aggregates bronze rows into per-market artist rollups:
// tracks = number of bronze rows mentioning the artist, total_score = sum
// of those rows' scores, best_rank = minimum rank. Output order is
// deterministic: market, then best rank, then total score descending.
func ToSilver(bronze []model.BronzeRow) []model.SilverRow {
	if len(bronze) == 0 {
		return nil
	}
	snapshotDate := bronze[0].SnapshotDate

	type key struct {
		market   string
		artistID string
	}
	buckets := make(map[key]*model.SilverRow)

	for _, mention := range explode(bronze) {
		k := key{market: mention.market, artistID: mention.artistID}
		row, ok := buckets[k]
		if !ok {
			row = &model.SilverRow{
				SnapshotDate: snapshotDate,
				Market:       mention.market,
				ArtistID:     mention.artistID,
				ArtistName:   mention.artistName,
				BestRank:     mention.rank,
			}
			buckets[k] = row
		}
		row.Tracks++
		row.TotalScore += mention.score
		if mention.rank < row.BestRank {
			row.BestRank = mention.rank
		}
	}

	rows := make([]model.SilverRow, 0, len(buckets))
	for _, row := range buckets {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Market != rows[j].Market {
			return rows[i].Market < rows[j].Market
		}
		if rows[i].BestRank != rows[j].BestRank {
			return rows[i].BestRank < rows[j].BestRank
		}
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		return rows[i].ArtistID < rows[j].ArtistID
	})
	return rows
}

// explode performs the one-to-many artist expansion.
func explode(bronze []model.BronzeRow) []artistMention {
	var mentions []artistMention
	for _, row := range bronze {
		for i, artistID := range row.ArtistIDs {
			if artistID == "" {
				continue
			}
			name := ""
			if i < len(row.ArtistNames) {
				name = row.ArtistNames[i]
			}
			mentions = append(mentions, artistMention{
				market:     row.Market,
				artistID:   artistID,
				artistName: name,
				rank:       row.Rank,
				score:      row.Score,
			})
		}
	}
	return mentions
}

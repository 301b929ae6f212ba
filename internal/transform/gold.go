package transform

import (
	"sort"

	"github.com/soundrank/soundrank/internal/model"
)

// ToGold aggregates silver rows into global artist rollups: markets =
// number of distinct markets the artist charted in, total_score = sum of
// per-market scores, best_rank = minimum best rank across markets.
func ToGold(silver []model.SilverRow) []model.GoldRow {
	if len(silver) == 0 {
		return nil
	}
	snapshotDate := silver[0].SnapshotDate

	buckets := make(map[string]*model.GoldRow)
	seen := make(map[string]map[string]bool)

	for _, s := range silver {
		row, ok := buckets[s.ArtistID]
		if !ok {
			row = &model.GoldRow{
				SnapshotDate: snapshotDate,
				ArtistID:     s.ArtistID,
				ArtistName:   s.ArtistName,
				BestRank:     s.BestRank,
			}
			buckets[s.ArtistID] = row
			seen[s.ArtistID] = make(map[string]bool)
		}
		if !seen[s.ArtistID][s.Market] {
			seen[s.ArtistID][s.Market] = true
			row.Markets++
		}
		row.TotalScore += s.TotalScore
		if s.BestRank < row.BestRank {
			row.BestRank = s.BestRank
		}
	}

	rows := make([]model.GoldRow, 0, len(buckets))
	for _, row := range buckets {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
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

package logic

import (
	"sort"

	"github.com/riftluck/stats-api/internal/models"
)

// ScoredFilter narrows a scored table. Zero values match everything.
type ScoredFilter struct {
	PlayerID string
	Role     models.Role
	Bucket   models.Bucket
	Win      *bool
}

func (f ScoredFilter) Match(r models.ScoredGameRow) bool {
	if f.PlayerID != "" && r.PlayerID != f.PlayerID {
		return false
	}
	if f.Role != models.RoleUnknown && r.Role != f.Role {
		return false
	}
	if f.Bucket != "" && r.Bucket != f.Bucket {
		return false
	}
	if f.Win != nil && r.Win != *f.Win {
		return false
	}
	return true
}

func FilterScored(rows []models.ScoredGameRow, f ScoredFilter) []models.ScoredGameRow {
	out := make([]models.ScoredGameRow, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// BuildReport summarizes scored games for one player, or for every row when
// playerID is empty. topN bounds each of the highlighted game lists.
func BuildReport(rows []models.ScoredGameRow, playerID string, topN int) models.Report {
	rows = FilterScored(rows, ScoredFilter{PlayerID: playerID})

	rep := models.Report{
		PlayerID:     playerID,
		Games:        len(rows),
		BucketCounts: make(map[models.Bucket]int, len(models.AllBuckets)),
		Luck:         Luck(playerID, rows),
	}
	for _, b := range models.AllBuckets {
		rep.BucketCounts[b] = 0
	}

	var wins, losses []models.ScoredGameRow
	for _, r := range rows {
		rep.BucketCounts[r.Bucket]++
		if r.Win {
			wins = append(wins, r)
		} else {
			losses = append(losses, r)
			if r.ImpactRankOnTeam <= 2 {
				rep.TopTwoImpactLosses++
			}
		}
	}
	rep.Wins, rep.Losses = len(wins), len(losses)
	rep.WinAverages = averages(wins)
	rep.LossAverages = averages(losses)
	if len(losses) > 0 {
		rate := float64(rep.TopTwoImpactLosses) / float64(len(losses))
		rep.TopTwoImpactLossPct = &rate
	}

	rep.HighImpactLosses = topBy(losses, topN, func(a, b models.ScoredGameRow) bool {
		return a.ImpactScore > b.ImpactScore
	})
	rep.UnluckyLosses = topBy(losses, topN, func(a, b models.ScoredGameRow) bool {
		return a.PWin10Min > b.PWin10Min
	})
	rep.ClutchWins = topBy(wins, topN, func(a, b models.ScoredGameRow) bool {
		return a.PWin10Min < b.PWin10Min
	})
	return rep
}

func averages(rows []models.ScoredGameRow) models.ImpactAverages {
	avg := models.ImpactAverages{Games: len(rows)}
	if len(rows) == 0 {
		return avg
	}
	for _, r := range rows {
		avg.AvgImpact += r.ImpactScore
		avg.AvgPWin += r.PWin10Min
	}
	avg.AvgImpact /= float64(len(rows))
	avg.AvgPWin /= float64(len(rows))
	return avg
}

// topBy returns up to n rows ordered by less, breaking ties on match id.
func topBy(rows []models.ScoredGameRow, n int, less func(a, b models.ScoredGameRow) bool) []models.ScoredGameRow {
	sorted := make([]models.ScoredGameRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if less(sorted[i], sorted[j]) {
			return true
		}
		if less(sorted[j], sorted[i]) {
			return false
		}
		if sorted[i].MatchID != sorted[j].MatchID {
			return sorted[i].MatchID < sorted[j].MatchID
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

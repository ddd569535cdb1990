package logic

import (
	"sort"

	"github.com/riftluck/stats-api/internal/models"
)

// Luck aggregates the given scored games under playerID. Probabilities are
// summed in ascending order so the total does not depend on row order.
func Luck(playerID string, rows []models.ScoredGameRow) models.LuckSummary {
	ps := make([]float64, 0, len(rows))
	wins := 0
	for _, r := range rows {
		ps = append(ps, r.PWin10Min)
		if r.Win {
			wins++
		}
	}
	sort.Float64s(ps)
	var expected float64
	for _, p := range ps {
		expected += p
	}
	diff := float64(wins) - expected
	return models.LuckSummary{
		PlayerID:     playerID,
		Games:        len(rows),
		ActualWins:   wins,
		ExpectedWins: expected,
		LuckDiff:     diff,
		Label:        LuckLabel(diff),
	}
}

// SummarizeLuck returns one LuckSummary per player, ordered by player id.
func SummarizeLuck(rows []models.ScoredGameRow) []models.LuckSummary {
	byPlayer := make(map[string][]models.ScoredGameRow)
	for _, r := range rows {
		byPlayer[r.PlayerID] = append(byPlayer[r.PlayerID], r)
	}
	ids := make([]string, 0, len(byPlayer))
	for id := range byPlayer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.LuckSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, Luck(id, byPlayer[id]))
	}
	return out
}

// LuckLabel turns a luck diff into a short verdict.
func LuckLabel(diff float64) string {
	switch {
	case diff >= 5:
		return "clearly lucky"
	case diff <= -5:
		return "clearly unlucky"
	case diff >= 2.5:
		return "kinda lucky"
	case diff <= -2.5:
		return "kinda unlucky"
	default:
		return "about as expected"
	}
}

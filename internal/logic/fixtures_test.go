package logic

import (
	"fmt"
	"math/rand/v2"

	"github.com/riftluck/stats-api/internal/models"
)

var fixtureRoles = []string{"TOP", "JUNGLE", "MIDDLE", "BOTTOM", "UTILITY"}

// synthMatches builds n complete matches. The team ahead at 10 minutes
// usually wins. Player ids rotate through a pool of 20 so every player
// appears in several matches.
func synthMatches(n int, seed uint64) models.PipelineInput {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	var in models.PipelineInput

	for m := 0; m < n; m++ {
		matchID := fmt.Sprintf("M%03d", m)
		duration := 25 + rng.Float64()*10
		goldDiff := rng.NormFloat64() * 1500
		blueWins := goldDiff/1000+rng.NormFloat64() > 0

		for t, teamID := range []int{100, 200} {
			sign := 1
			if t == 1 {
				sign = -1
			}
			in.Snapshots = append(in.Snapshots, models.TimelineSnapshot10{
				MatchID:    matchID,
				TeamID:     teamID,
				Gold:       16000 + sign*int(goldDiff/2),
				Experience: 18000 + sign*int(goldDiff/3) + rng.IntN(400),
				CreepScore: 320 + rng.IntN(40),
				Kills:      3 + rng.IntN(5),
			})

			var players []models.PlayerGameRecord
			teamKills := 0
			var teamDamage, teamGold float64
			for slot := 0; slot < 5; slot++ {
				p := models.PlayerGameRecord{
					MatchID:             matchID,
					PlayerID:            fmt.Sprintf("P%02d", (m+(t*5+slot)*2)%20),
					TeamID:              teamID,
					Role:                fixtureRoles[slot],
					Kills:               1 + rng.IntN(8),
					Deaths:              rng.IntN(8),
					Assists:             rng.IntN(12),
					DamageDealt:         5000 + rng.Float64()*25000,
					GoldEarned:          7000 + rng.Float64()*8000,
					CreepScore:          20 + rng.IntN(250),
					VisionScore:         5 + rng.Float64()*60,
					GameDurationMinutes: duration,
					Win:                 (t == 0) == blueWins,
				}
				teamKills += p.Kills
				teamDamage += p.DamageDealt
				teamGold += p.GoldEarned
				players = append(players, p)
			}
			for i := range players {
				players[i].TeamKills = teamKills + rng.IntN(3)
				players[i].TeamDamage = teamDamage
				players[i].TeamGold = teamGold
			}
			in.Records = append(in.Records, players...)
		}
	}
	return in
}

func deriveAll(in models.PipelineInput) []models.DerivedFeatureRow {
	idx := indexSnapshots(in.Snapshots)
	rows := make([]models.DerivedFeatureRow, len(in.Records))
	for i, rec := range in.Records {
		team, enemy, _ := idx.pair(rec.MatchID, rec.TeamID)
		rows[i], _ = DeriveRow(rec, team, enemy)
		markComplete(&rows[i], models.DefaultFeatures())
	}
	return rows
}

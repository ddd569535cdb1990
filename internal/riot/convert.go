package riot

import (
	"fmt"
	"sort"

	"github.com/riftluck/stats-api/internal/models"
)

// PlayerID picks the stable identifier of a participant.
func (p MatchParticipant) PlayerID() string {
	if p.PUUID != "" {
		return p.PUUID
	}
	if p.RiotIdGameName != "" {
		return p.RiotIdGameName + "#" + p.RiotIdTagline
	}
	return p.SummonerName
}

// Records flattens a match into one PlayerGameRecord per participant with
// team totals filled in. Creep score counts lane and jungle minions.
func (m *MatchResponse) Records() ([]models.PlayerGameRecord, error) {
	matchID := m.Metadata.MatchID
	if matchID == "" {
		return nil, fmt.Errorf("match without id")
	}
	if len(m.Info.Participants) == 0 {
		return nil, fmt.Errorf("match %s has no participants", matchID)
	}

	type totals struct {
		kills  int
		damage float64
		gold   float64
	}
	teams := make(map[int]*totals)
	for _, p := range m.Info.Participants {
		t, ok := teams[p.TeamID]
		if !ok {
			t = &totals{}
			teams[p.TeamID] = t
		}
		t.kills += p.Kills
		t.damage += float64(p.TotalDamageDealtToChampions)
		t.gold += float64(p.GoldEarned)
	}

	minutes := float64(m.Info.GameDuration) / 60
	out := make([]models.PlayerGameRecord, 0, len(m.Info.Participants))
	for _, p := range m.Info.Participants {
		t := teams[p.TeamID]
		out = append(out, models.PlayerGameRecord{
			MatchID:             matchID,
			PlayerID:            p.PlayerID(),
			TeamID:              p.TeamID,
			Role:                p.TeamPosition,
			Champion:            p.ChampionName,
			Kills:               p.Kills,
			Deaths:              p.Deaths,
			Assists:             p.Assists,
			TeamKills:           t.kills,
			DamageDealt:         float64(p.TotalDamageDealtToChampions),
			TeamDamage:          t.damage,
			GoldEarned:          float64(p.GoldEarned),
			TeamGold:            t.gold,
			CreepScore:          p.TotalMinionsKilled + p.NeutralMinionsKilled,
			VisionScore:         float64(p.VisionScore),
			GameDurationMinutes: minutes,
			Win:                 p.Win,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

// teamOf maps participant id to team id.
func (m *MatchResponse) teamOf() map[int]int {
	out := make(map[int]int, len(m.Info.Participants))
	for _, p := range m.Info.Participants {
		out[p.ParticipantID] = p.TeamID
	}
	return out
}

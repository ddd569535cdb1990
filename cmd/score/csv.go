package main

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/riftluck/stats-api/internal/models"
)

var scoredHeader = []string{
	"match_id", "player_id", "team_id", "role", "impact_score", "impact_rank_on_team",
	"p_win_10min", "win", "bucket",
	"z_damage_share", "z_kill_participation", "z_cs_per_min", "z_vision_per_min",
}

// WriteScoredCSV writes rows in order. Missing z values are empty cells.
func WriteScoredCSV(w io.Writer, rows []models.ScoredGameRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scoredHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.MatchID,
			r.PlayerID,
			strconv.Itoa(r.TeamID),
			r.Role.String(),
			formatFloat(r.ImpactScore),
			strconv.Itoa(r.ImpactRankOnTeam),
			formatFloat(r.PWin10Min),
			strconv.FormatBool(r.Win),
			string(r.Bucket),
			optional(r.ZDamageShare),
			optional(r.ZKillParticipation),
			optional(r.ZCSPerMin),
			optional(r.ZVisionPerMin),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func optional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

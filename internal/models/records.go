package models

// PlayerGameRecord is one row per (match, player) as delivered by the
// acquisition layer. Team totals are precomputed by that layer.
type PlayerGameRecord struct {
	MatchID             string  `json:"match_id" validate:"required"`
	PlayerID            string  `json:"player_id" validate:"required"`
	TeamID              int     `json:"team_id" validate:"min=0"`
	Role                string  `json:"role"`
	Champion            string  `json:"champion,omitempty"`
	Kills               int     `json:"kills" validate:"min=0"`
	Deaths              int     `json:"deaths" validate:"min=0"`
	Assists             int     `json:"assists" validate:"min=0"`
	TeamKills           int     `json:"team_kills" validate:"min=0"`
	DamageDealt         float64 `json:"damage_dealt" validate:"min=0"`
	TeamDamage          float64 `json:"team_damage" validate:"min=0"`
	GoldEarned          float64 `json:"gold_earned,omitempty" validate:"min=0"`
	TeamGold            float64 `json:"team_gold,omitempty" validate:"min=0"`
	CreepScore          int     `json:"creep_score" validate:"min=0"`
	VisionScore         float64 `json:"vision_score" validate:"min=0"`
	GameDurationMinutes float64 `json:"game_duration_minutes"`
	Win                 bool    `json:"win"`
}

// TimelineSnapshot10 is one team's state at the 10 minute mark.
type TimelineSnapshot10 struct {
	MatchID     string `json:"match_id" validate:"required"`
	TeamID      int    `json:"team_id" validate:"min=0"`
	Gold        int    `json:"gold"`
	Experience  int    `json:"experience"`
	CreepScore  int    `json:"creep_score"`
	Kills       int    `json:"kills"`
	DragonKills *int   `json:"dragon_kills,omitempty"`
	LanePlates  *int   `json:"lane_plates,omitempty"`
}

// PipelineInput is the full batch handed to the scoring pipeline.
type PipelineInput struct {
	Records   []PlayerGameRecord   `json:"records" validate:"required,min=1,dive"`
	Snapshots []TimelineSnapshot10 `json:"snapshots" validate:"dive"`
}

// DerivedFeatureRow extends a PlayerGameRecord with ratio metrics and, when
// both 10 minute snapshots exist, early-game differentials.
type DerivedFeatureRow struct {
	Record PlayerGameRecord `json:"record"`

	KillParticipation float64  `json:"kill_participation"`
	DamageShare       float64  `json:"damage_share"`
	GoldShare         float64  `json:"gold_share"`
	CSPerMin          float64  `json:"cs_per_min"`
	VisionPerMin      float64  `json:"vision_per_min"`
	KDA               float64  `json:"kda"`
	Undefined         []Metric `json:"undefined,omitempty"`

	GoldDiff10    float64  `json:"gold_diff_10"`
	XPDiff10      float64  `json:"xp_diff_10"`
	CSDiff10      float64  `json:"cs_diff_10"`
	KillsDiff10   float64  `json:"kills_diff_10"`
	DragonsDiff10 *float64 `json:"dragons_diff_10,omitempty"`
	PlatesDiff10  *float64 `json:"plates_diff_10,omitempty"`
	HasTimeline   bool     `json:"has_timeline"`

	// TimelineComplete is true when every configured model feature is present.
	TimelineComplete bool `json:"timeline_complete"`
}

// Metric returns the value of m, or false when the ratio was undefined.
func (r *DerivedFeatureRow) Metric(m Metric) (float64, bool) {
	for _, u := range r.Undefined {
		if u == m {
			return 0, false
		}
	}
	switch m {
	case MetricDamageShare:
		return r.DamageShare, true
	case MetricKillParticipation:
		return r.KillParticipation, true
	case MetricCSPerMin:
		return r.CSPerMin, true
	case MetricVisionPerMin:
		return r.VisionPerMin, true
	case MetricGoldShare:
		return r.GoldShare, true
	case MetricKDA:
		return r.KDA, true
	}
	return 0, false
}

// Feature returns the value of an early-game differential, or false when the
// timeline pair (or the optional objective counts) is missing.
func (r *DerivedFeatureRow) Feature(f Feature) (float64, bool) {
	if !r.HasTimeline {
		return 0, false
	}
	switch f {
	case FeatureGoldDiff10:
		return r.GoldDiff10, true
	case FeatureXPDiff10:
		return r.XPDiff10, true
	case FeatureCSDiff10:
		return r.CSDiff10, true
	case FeatureKillsDiff10:
		return r.KillsDiff10, true
	case FeatureDragonsDiff10:
		if r.DragonsDiff10 == nil {
			return 0, false
		}
		return *r.DragonsDiff10, true
	case FeaturePlatesDiff10:
		if r.PlatesDiff10 == nil {
			return 0, false
		}
		return *r.PlatesDiff10, true
	}
	return 0, false
}

// ImpactScoreRow holds role-relative z-scores and the combined impact score.
type ImpactScoreRow struct {
	MatchID          string             `json:"match_id"`
	PlayerID         string             `json:"player_id"`
	TeamID           int                `json:"team_id"`
	Role             Role               `json:"role"`
	Win              bool               `json:"win"`
	ZScores          map[Metric]float64 `json:"z_scores"`
	ImpactScore      float64            `json:"impact_score"`
	ImpactRankOnTeam int                `json:"impact_rank_on_team"`
}

// WinProbabilityRow is an out-of-fold win probability for one player-game.
// Fold names the fold whose held-out set contained the match.
type WinProbabilityRow struct {
	MatchID   string  `json:"match_id"`
	PlayerID  string  `json:"player_id"`
	TeamID    int     `json:"team_id"`
	Win       bool    `json:"win"`
	PWin10Min float64 `json:"p_win_10min"`
	Fold      int     `json:"fold"`
}

// ScoredGameRow is the terminal artifact consumed by dashboards.
type ScoredGameRow struct {
	MatchID            string   `json:"match_id"`
	PlayerID           string   `json:"player_id"`
	TeamID             int      `json:"team_id"`
	Role               Role     `json:"role"`
	ImpactScore        float64  `json:"impact_score"`
	ImpactRankOnTeam   int      `json:"impact_rank_on_team"`
	PWin10Min          float64  `json:"p_win_10min"`
	Win                bool     `json:"win"`
	Bucket             Bucket   `json:"bucket"`
	ZDamageShare       *float64 `json:"z_damage_share"`
	ZKillParticipation *float64 `json:"z_kill_participation"`
	ZCSPerMin          *float64 `json:"z_cs_per_min"`
	ZVisionPerMin      *float64 `json:"z_vision_per_min"`

	ZOther map[Metric]float64 `json:"z_other,omitempty"`
}

// LuckSummary aggregates scored games for one player.
type LuckSummary struct {
	PlayerID     string  `json:"player_id"`
	Games        int     `json:"games"`
	ActualWins   int     `json:"actual_wins"`
	ExpectedWins float64 `json:"expected_wins"`
	LuckDiff     float64 `json:"luck_diff"`
	Label        string  `json:"label"`
}

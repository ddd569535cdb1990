package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/riftluck/stats-api/internal/models"
)

func scoreRows(t *testing.T, rows []models.DerivedFeatureRow, weights models.ImpactWeights) (*ImpactResult, []error) {
	t.Helper()
	scorer, err := NewImpactScorer(weights)
	if err != nil {
		t.Fatalf("NewImpactScorer() error = %v", err)
	}
	cohorts, roleErrs := ResolveRoles(rows)
	res, errs, err := scorer.Score(context.Background(), rows, cohorts)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	return res, append(roleErrs, errs...)
}

func TestImpactZScoresAreStandardized(t *testing.T) {
	rows := deriveAll(synthMatches(30, 7))
	res, errs := scoreRows(t, rows, models.DefaultImpactWeights())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(res.Rows) != len(rows) {
		t.Fatalf("scored %d rows, want %d", len(res.Rows), len(rows))
	}

	for _, role := range models.AllRoles {
		for _, m := range models.DefaultImpactWeights().Metrics() {
			var zs []float64
			for _, r := range res.Rows {
				if r.Role == role {
					zs = append(zs, r.ZScores[m])
				}
			}
			mean, std := meanStdDev(zs)
			if math.Abs(mean) > 1e-9 || math.Abs(std-1) > 1e-9 {
				t.Errorf("%s/%s: z mean %v std %v", role, m, mean, std)
			}
		}
	}
}

func TestImpactScoreArithmetic(t *testing.T) {
	mk := func(player string, kills, assists, teamKills int, dmg, teamDmg float64, cs int, vision float64) models.DerivedFeatureRow {
		row, _ := DeriveRow(models.PlayerGameRecord{
			MatchID: "M" + player, PlayerID: player, TeamID: 100, Role: "mid",
			Kills: kills, Assists: assists, TeamKills: teamKills,
			DamageDealt: dmg, TeamDamage: teamDmg,
			CreepScore: cs, VisionScore: vision, GameDurationMinutes: 20,
		}, nil, nil)
		return row
	}
	rows := []models.DerivedFeatureRow{
		mk("a", 3, 4, 10, 8000, 20000, 80, 20),
		mk("b", 1, 2, 12, 5000, 25000, 160, 30),
		mk("c", 6, 1, 14, 9000, 30000, 120, 50),
	}
	weights := models.DefaultImpactWeights()
	res, errs := scoreRows(t, rows, weights)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	// Hand-computed population statistics of the mid cohort.
	raw := map[models.Metric][]float64{
		models.MetricDamageShare:       {0.4, 0.2, 0.3},
		models.MetricKillParticipation: {0.7, 0.25, 0.5},
		models.MetricCSPerMin:          {4, 8, 6},
		models.MetricVisionPerMin:      {1, 1.5, 2.5},
	}
	byPlayer := make(map[string]models.ImpactScoreRow)
	for _, r := range res.Rows {
		byPlayer[r.PlayerID] = r
	}
	for i, player := range []string{"a", "b", "c"} {
		r := byPlayer[player]
		var want float64
		for _, mw := range weights {
			vals := raw[mw.Metric]
			mean := (vals[0] + vals[1] + vals[2]) / 3
			var ss float64
			for _, v := range vals {
				ss += (v - mean) * (v - mean)
			}
			z := (vals[i] - mean) / math.Sqrt(ss/3)
			if math.Abs(r.ZScores[mw.Metric]-z) > 1e-12 {
				t.Errorf("%s z(%s) = %v, want %v", player, mw.Metric, r.ZScores[mw.Metric], z)
			}
			want += mw.Weight * r.ZScores[mw.Metric]
		}
		if r.ImpactScore != want {
			t.Errorf("%s impact = %v, want exactly %v", player, r.ImpactScore, want)
		}
	}
}

func TestImpactDegenerateCohorts(t *testing.T) {
	rows := deriveAll(synthMatches(4, 3))
	// A lone jungler in an otherwise empty cohort.
	for i := range rows {
		if rows[i].Record.Role == "JUNGLE" && i > 1 {
			rows[i].Record.Role = "garbage"
		}
	}
	// Identical vision for every support.
	for i := range rows {
		if rows[i].Record.Role == "UTILITY" {
			rows[i].VisionPerMin = 1.25
		}
	}

	res, errs := scoreRows(t, rows, models.DefaultImpactWeights())

	var unknown, degenerate int
	for _, err := range errs {
		switch {
		case errors.Is(err, ErrUnknownRole):
			unknown++
		case errors.Is(err, ErrDegenerateCohort):
			degenerate++
			var ce *CohortError
			if !errors.As(err, &ce) || len(ce.Members) == 0 {
				t.Errorf("cohort error without members: %v", err)
			}
		}
	}
	if unknown == 0 {
		t.Error("expected unknown role reports")
	}
	// jungle: all four metrics from one value; support: vision only.
	if degenerate != 5 {
		t.Errorf("got %d degenerate cohort reports, want 5", degenerate)
	}

	for _, r := range res.Rows {
		if r.Role == models.RoleJungle || r.Role == models.RoleSupport {
			t.Errorf("row %s/%s in degenerate cohort was scored", r.MatchID, r.PlayerID)
		}
	}
	// One jungler plus two supports per match.
	if len(res.Unscorable) != 9 {
		t.Errorf("got %d unscorable rows, want 9: %v", len(res.Unscorable), res.Unscorable)
	}
}

func TestImpactAbsentRolesReportNothing(t *testing.T) {
	var rows []models.DerivedFeatureRow
	for _, r := range deriveAll(synthMatches(20, 7)) {
		if r.Record.Role == "TOP" || r.Record.Role == "MIDDLE" {
			rows = append(rows, r)
		}
	}

	res, errs := scoreRows(t, rows, models.DefaultImpactWeights())
	if len(errs) != 0 {
		t.Errorf("absent roles produced %d reports: %v", len(errs), errs)
	}
	if len(res.Rows) != len(rows) || len(res.Unscorable) != 0 {
		t.Errorf("scored %d of %d rows, %d unscorable", len(res.Rows), len(rows), len(res.Unscorable))
	}
	for _, st := range res.Stats {
		if st.Role != models.RoleTop && st.Role != models.RoleMid {
			t.Errorf("stats for absent role %s", st.Role)
		}
	}
}

func TestRankOnTeam(t *testing.T) {
	rows := []models.ImpactScoreRow{
		{MatchID: "M1", TeamID: 100, PlayerID: "c", ImpactScore: 0.5},
		{MatchID: "M1", TeamID: 100, PlayerID: "a", ImpactScore: 1.2},
		{MatchID: "M1", TeamID: 100, PlayerID: "b", ImpactScore: 0.5},
		{MatchID: "M1", TeamID: 100, PlayerID: "d", ImpactScore: -2},
		{MatchID: "M1", TeamID: 200, PlayerID: "e", ImpactScore: -1},
		{MatchID: "M1", TeamID: 200, PlayerID: "f", ImpactScore: 3},
		{MatchID: "M2", TeamID: 100, PlayerID: "a", ImpactScore: 0},
	}
	RankOnTeam(rows)

	want := map[string]int{
		"M1/100/a": 1, "M1/100/b": 2, "M1/100/c": 3, "M1/100/d": 4,
		"M1/200/f": 1, "M1/200/e": 2,
		"M2/100/a": 1,
	}
	for _, r := range rows {
		key := fmt.Sprintf("%s/%d/%s", r.MatchID, r.TeamID, r.PlayerID)
		if r.ImpactRankOnTeam != want[key] {
			t.Errorf("%s rank = %d, want %d", key, r.ImpactRankOnTeam, want[key])
		}
	}
}

func TestRankOnTeamIsPermutation(t *testing.T) {
	rows := deriveAll(synthMatches(12, 11))
	res, _ := scoreRows(t, rows, models.DefaultImpactWeights())

	type teamKey struct {
		match string
		team  int
	}
	groups := make(map[teamKey][]models.ImpactScoreRow)
	for _, r := range res.Rows {
		k := teamKey{r.MatchID, r.TeamID}
		groups[k] = append(groups[k], r)
	}
	for k, g := range groups {
		seen := make(map[int]bool)
		for _, r := range g {
			if r.ImpactRankOnTeam < 1 || r.ImpactRankOnTeam > len(g) || seen[r.ImpactRankOnTeam] {
				t.Fatalf("%v: ranks are not a permutation of 1..%d", k, len(g))
			}
			seen[r.ImpactRankOnTeam] = true
			for _, o := range g {
				if o.ImpactScore > r.ImpactScore && o.ImpactRankOnTeam > r.ImpactRankOnTeam {
					t.Fatalf("%v: %s outranks higher impact %s", k, r.PlayerID, o.PlayerID)
				}
			}
		}
	}
}

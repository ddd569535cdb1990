package logic

import (
	"math"
	"testing"

	"github.com/riftluck/stats-api/internal/models"
)

func reportRows() []models.ScoredGameRow {
	return []models.ScoredGameRow{
		{MatchID: "M1", PlayerID: "me", Role: models.RoleMid, Win: false, PWin10Min: 0.8, ImpactScore: 1.2, ImpactRankOnTeam: 1, Bucket: models.BucketUnluckyLoss},
		{MatchID: "M2", PlayerID: "me", Role: models.RoleMid, Win: false, PWin10Min: 0.2, ImpactScore: -0.4, ImpactRankOnTeam: 4, Bucket: models.BucketExpectedLoss},
		{MatchID: "M3", PlayerID: "me", Role: models.RoleTop, Win: true, PWin10Min: 0.3, ImpactScore: 0.9, ImpactRankOnTeam: 1, Bucket: models.BucketClutchWin},
		{MatchID: "M4", PlayerID: "me", Role: models.RoleMid, Win: false, PWin10Min: 0.5, ImpactScore: 0.1, ImpactRankOnTeam: 2, Bucket: models.BucketTossupLoss},
		{MatchID: "M5", PlayerID: "me", Role: models.RoleMid, Win: true, PWin10Min: 0.7, ImpactScore: 0.3, ImpactRankOnTeam: 3, Bucket: models.BucketExpectedWin},
		{MatchID: "M1", PlayerID: "mate", Role: models.RoleTop, Win: false, PWin10Min: 0.8, ImpactScore: 0.2, ImpactRankOnTeam: 2, Bucket: models.BucketUpsetLoss},
	}
}

func TestBuildReport(t *testing.T) {
	rep := BuildReport(reportRows(), "me", 2)

	if rep.Games != 5 || rep.Wins != 2 || rep.Losses != 3 {
		t.Fatalf("report totals = %d/%d/%d", rep.Games, rep.Wins, rep.Losses)
	}
	if len(rep.BucketCounts) != len(models.AllBuckets) {
		t.Errorf("bucket counts should list every bucket, got %d", len(rep.BucketCounts))
	}
	if rep.BucketCounts[models.BucketUnluckyLoss] != 1 || rep.BucketCounts[models.BucketThrow] != 0 {
		t.Errorf("bucket counts = %v", rep.BucketCounts)
	}
	if rep.TopTwoImpactLosses != 2 || rep.TopTwoImpactLossPct == nil || *rep.TopTwoImpactLossPct != 2.0/3.0 {
		t.Errorf("top two impact losses = %d (%v)", rep.TopTwoImpactLosses, rep.TopTwoImpactLossPct)
	}
	if rep.WinAverages.Games != 2 || math.Abs(rep.WinAverages.AvgPWin-0.5) > 1e-12 {
		t.Errorf("win averages = %+v", rep.WinAverages)
	}

	if len(rep.UnluckyLosses) != 2 || rep.UnluckyLosses[0].MatchID != "M1" || rep.UnluckyLosses[1].MatchID != "M4" {
		t.Errorf("unlucky losses = %+v", rep.UnluckyLosses)
	}
	if len(rep.ClutchWins) != 2 || rep.ClutchWins[0].MatchID != "M3" {
		t.Errorf("clutch wins = %+v", rep.ClutchWins)
	}
	if len(rep.HighImpactLosses) != 2 || rep.HighImpactLosses[0].MatchID != "M1" || rep.HighImpactLosses[1].MatchID != "M4" {
		t.Errorf("high impact losses = %+v", rep.HighImpactLosses)
	}
	if rep.Luck.PlayerID != "me" || rep.Luck.ActualWins != 2 {
		t.Errorf("luck = %+v", rep.Luck)
	}
}

func TestBuildReportWithoutLosses(t *testing.T) {
	rep := BuildReport(reportRows(), "nobody", 5)
	if rep.Games != 0 || rep.TopTwoImpactLossPct != nil {
		t.Errorf("empty report = %+v", rep)
	}
}

func TestFilterScored(t *testing.T) {
	win := true
	tests := []struct {
		name   string
		filter ScoredFilter
		want   int
	}{
		{"everything", ScoredFilter{}, 6},
		{"player", ScoredFilter{PlayerID: "mate"}, 1},
		{"role", ScoredFilter{Role: models.RoleTop}, 2},
		{"bucket", ScoredFilter{Bucket: models.BucketClutchWin}, 1},
		{"wins by me in mid", ScoredFilter{PlayerID: "me", Role: models.RoleMid, Win: &win}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterScored(reportRows(), tt.filter); len(got) != tt.want {
				t.Errorf("got %d rows, want %d", len(got), tt.want)
			}
		})
	}
}

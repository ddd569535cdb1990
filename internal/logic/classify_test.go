package logic

import (
	"errors"
	"testing"

	"github.com/riftluck/stats-api/internal/models"
)

func TestClassify(t *testing.T) {
	c, err := NewClassifier(models.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	tests := []struct {
		name string
		p, s float64
		win  bool
		want models.Bucket
	}{
		{"favoured win fires first", 0.72, 0.0, true, models.BucketExpectedWin},
		{"favoured win ignores impact", 0.72, -3, true, models.BucketExpectedWin},
		{"low p high impact loss", 0.30, 0.8, false, models.BucketExpectedLoss},
		{"underdog loss", 0.10, -2, false, models.BucketExpectedLoss},
		{"lucky win", 0.20, -0.9, true, models.BucketLuckyWin},
		{"unlucky loss", 0.80, 0.9, false, models.BucketUnluckyLoss},
		{"clutch win", 0.25, 1.4, true, models.BucketClutchWin},
		{"throw", 0.70, -0.7, false, models.BucketThrow},
		{"upset win", 0.35, 0.0, true, models.BucketUpsetWin},
		{"upset loss", 0.90, 0.2, false, models.BucketUpsetLoss},
		{"tossup win", 0.50, 2.0, true, models.BucketTossupWin},
		{"tossup loss", 0.50, -2.0, false, models.BucketTossupLoss},
		{"band is inclusive at low_p", 0.40, 0, true, models.BucketTossupWin},
		{"band is inclusive at high_p", 0.65, 0, false, models.BucketTossupLoss},
		{"impact boundary is strict", 0.80, 0.5, false, models.BucketUpsetLoss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.p, tt.s, tt.win)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%v, %v, %v) = %s, want %s", tt.p, tt.s, tt.win, got, tt.want)
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	c, _ := NewClassifier(models.Thresholds{HighP: 0.6, LowP: 0.35, HighImpact: 0.25, LowImpact: -1})
	known := make(map[models.Bucket]bool)
	for _, b := range models.AllBuckets {
		known[b] = true
	}
	hit := make(map[models.Bucket]bool)

	for pi := 0; pi <= 100; pi++ {
		p := float64(pi) / 100
		for si := -30; si <= 30; si++ {
			s := float64(si) / 10
			for _, win := range []bool{true, false} {
				b, err := c.Classify(p, s, win)
				if err != nil {
					t.Fatalf("Classify(%v, %v, %v) error = %v", p, s, win, err)
				}
				if !known[b] {
					t.Fatalf("Classify(%v, %v, %v) = unknown bucket %q", p, s, win, b)
				}
				again, _ := c.Classify(p, s, win)
				if again != b {
					t.Fatalf("Classify(%v, %v, %v) not deterministic", p, s, win)
				}
				hit[b] = true
			}
		}
	}
	if len(hit) != len(models.AllBuckets) {
		t.Errorf("grid reached %d of %d buckets", len(hit), len(models.AllBuckets))
	}
}

func TestClassifyRejectsBadProbability(t *testing.T) {
	c, _ := NewClassifier(models.DefaultThresholds())
	for _, p := range []float64{-0.1, 1.1} {
		if _, err := c.Classify(p, 0, true); !errors.Is(err, ErrUnclassifiable) {
			t.Errorf("Classify(%v) error = %v, want ErrUnclassifiable", p, err)
		}
	}
}

func TestNewClassifierRejectsThresholds(t *testing.T) {
	tests := []struct {
		name string
		t    models.Thresholds
	}{
		{"equal p", models.Thresholds{HighP: 0.5, LowP: 0.5, HighImpact: 1, LowImpact: -1}},
		{"inverted p", models.Thresholds{HighP: 0.3, LowP: 0.6, HighImpact: 1, LowImpact: -1}},
		{"equal impact", models.Thresholds{HighP: 0.7, LowP: 0.3, HighImpact: 0, LowImpact: 0}},
		{"inverted impact", models.Thresholds{HighP: 0.7, LowP: 0.3, HighImpact: -1, LowImpact: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassifier(tt.t)
			if !errors.Is(err, ErrInvalidThresholds) {
				t.Errorf("error = %v, want ErrInvalidThresholds", err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	c, _ := NewClassifier(models.DefaultThresholds())
	impact := []models.ImpactScoreRow{
		{MatchID: "M1", PlayerID: "a", TeamID: 100, Role: models.RoleMid, Win: true, ImpactScore: 1.1, ImpactRankOnTeam: 1,
			ZScores: map[models.Metric]float64{models.MetricDamageShare: 1.5, models.MetricKDA: 0.3}},
		{MatchID: "M1", PlayerID: "b", TeamID: 200, Role: models.RoleMid, Win: false, ImpactScore: -0.2, ImpactRankOnTeam: 1},
	}
	probs := []models.WinProbabilityRow{
		{MatchID: "M1", PlayerID: "a", TeamID: 100, Win: true, PWin10Min: 0.7},
		{MatchID: "M2", PlayerID: "z", TeamID: 100, Win: true, PWin10Min: 0.5},
	}

	rows, errs := c.Merge(impact, probs)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.Bucket != models.BucketExpectedWin || r.PWin10Min != 0.7 || r.ImpactScore != 1.1 {
		t.Errorf("row = %+v", r)
	}
	if r.ZDamageShare == nil || *r.ZDamageShare != 1.5 || r.ZCSPerMin != nil {
		t.Errorf("z columns not carried: %+v", r)
	}
	if r.ZOther[models.MetricKDA] != 0.3 {
		t.Errorf("extra metric z = %v, want 0.3", r.ZOther[models.MetricKDA])
	}

	if len(errs) != 2 {
		t.Fatalf("got %d unmatched reports, want 2", len(errs))
	}
	for _, err := range errs {
		if !errors.Is(err, ErrUnmatched) {
			t.Errorf("error %v does not match ErrUnmatched", err)
		}
	}
}

func TestMergeReportsUnclassifiable(t *testing.T) {
	c, _ := NewClassifier(models.DefaultThresholds())
	impact := []models.ImpactScoreRow{
		{MatchID: "M1", PlayerID: "a", TeamID: 100, Role: models.RoleTop, Win: true, ImpactScore: 0.4},
		{MatchID: "M1", PlayerID: "b", TeamID: 200, Role: models.RoleTop, Win: false, ImpactScore: -0.4},
	}
	probs := []models.WinProbabilityRow{
		{MatchID: "M1", PlayerID: "a", TeamID: 100, Win: true, PWin10Min: 1.5},
		{MatchID: "M1", PlayerID: "b", TeamID: 200, Win: false, PWin10Min: 0.3},
	}

	rows, errs := c.Merge(impact, probs)
	if len(rows) != 1 || rows[0].PlayerID != "b" {
		t.Fatalf("rows = %+v, want only player b", rows)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d reports, want 1: %v", len(errs), errs)
	}
	err := errs[0]
	if !errors.Is(err, ErrUnclassifiable) || errors.Is(err, ErrUnmatched) {
		t.Errorf("error %v should be unclassifiable, not unmatched", err)
	}
	issue := issueFrom(err)
	if issue.Kind != models.IssueUnclassifiable || issue.PlayerID != "a" {
		t.Errorf("issue = %+v", issue)
	}
}

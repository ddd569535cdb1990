package logic

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/riftluck/stats-api/internal/models"
)

func newTestService(t *testing.T, opts Options) ScoringService {
	t.Helper()
	svc, err := NewScoringService(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScoringService() error = %v", err)
	}
	return svc
}

func TestScoringServiceRun(t *testing.T) {
	in := synthMatches(40, 21)
	// One unknown role and one zero-duration game.
	in.Records[3].Role = "ROAMER"
	in.Records[17].GameDurationMinutes = 0

	svc := newTestService(t, DefaultOptions())
	res, err := svc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.RunID == "" || res.Records != len(in.Records) {
		t.Errorf("run header = %q/%d", res.RunID, res.Records)
	}
	if len(res.Impact) != len(in.Records)-2 {
		t.Errorf("got %d impact rows, want %d", len(res.Impact), len(in.Records)-2)
	}
	if len(res.Probabilities) != len(in.Records) {
		t.Errorf("got %d probability rows, want %d", len(res.Probabilities), len(in.Records))
	}
	if len(res.Scored) != len(res.Impact) {
		t.Errorf("got %d scored rows, want %d", len(res.Scored), len(res.Impact))
	}
	if len(res.Folds) != 5 {
		t.Errorf("got %d folds, want 5", len(res.Folds))
	}

	kinds := make(map[models.IssueKind]int)
	for _, is := range res.Issues {
		kinds[is.Kind]++
	}
	if kinds[models.IssueUnknownRole] != 1 {
		t.Errorf("unknown role issues = %d, want 1", kinds[models.IssueUnknownRole])
	}
	// cs_per_min and vision_per_min; gold_share and kda carry no weight.
	if kinds[models.IssueUndefinedRatio] != 2 {
		t.Errorf("undefined ratio issues = %d, want 2", kinds[models.IssueUndefinedRatio])
	}
	// Both rows have probabilities but no impact score.
	if kinds[models.IssueUnmatched] != 2 {
		t.Errorf("unmatched issues = %d, want 2", kinds[models.IssueUnmatched])
	}

	games := 0
	for _, l := range res.Luck {
		games += l.Games
	}
	if games != len(res.Scored) {
		t.Errorf("luck covers %d games, want %d", games, len(res.Scored))
	}
}

func TestScoringServiceReportsIncompleteTimelineOnce(t *testing.T) {
	in := synthMatches(40, 21)
	// M000 loses both of its snapshots.
	in.Snapshots = in.Snapshots[2:]

	svc := newTestService(t, DefaultOptions())
	res, err := svc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Probabilities) != len(in.Records)-10 {
		t.Errorf("got %d probability rows, want %d", len(res.Probabilities), len(in.Records)-10)
	}

	perPlayer := make(map[string][]models.IssueKind)
	for _, is := range res.Issues {
		if is.MatchID == "M000" {
			perPlayer[is.PlayerID] = append(perPlayer[is.PlayerID], is.Kind)
		}
	}
	if len(perPlayer) != 10 {
		t.Errorf("got issues for %d M000 players, want 10", len(perPlayer))
	}
	for player, kinds := range perPlayer {
		if len(kinds) != 1 || kinds[0] != models.IssueTimelineMissing {
			t.Errorf("M000/%s issues = %v, want only %s", player, kinds, models.IssueTimelineMissing)
		}
	}
	for _, is := range res.Issues {
		if is.Kind == models.IssueUnmatched {
			t.Errorf("unexpected unmatched issue: %+v", is)
		}
	}
}

func TestWithoutIncompleteKeepsOtherReports(t *testing.T) {
	rows := []models.DerivedFeatureRow{
		{Record: models.PlayerGameRecord{MatchID: "M1", PlayerID: "a"}},
		{Record: models.PlayerGameRecord{MatchID: "M1", PlayerID: "b"}, TimelineComplete: true},
	}
	errs := []error{
		&RowError{Err: ErrUnmatched, MatchID: "M1", PlayerID: "a", Detail: "no win probability"},
		&RowError{Err: ErrUnmatched, MatchID: "M1", PlayerID: "b", Detail: "no win probability"},
		&RowError{Err: ErrUnclassifiable, MatchID: "M1", PlayerID: "a"},
	}

	got := withoutIncomplete(errs, rows)
	if len(got) != 2 {
		t.Fatalf("got %d reports, want 2: %v", len(got), got)
	}
	if !errors.Is(got[0], ErrUnmatched) || !errors.Is(got[1], ErrUnclassifiable) {
		t.Errorf("reports = %v", got)
	}
}

func TestScoringServiceInsufficientData(t *testing.T) {
	in := synthMatches(4, 8)
	svc := newTestService(t, DefaultOptions())

	res, err := svc.Run(context.Background(), in)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("Run() error = %v, want ErrInsufficientData", err)
	}
	if res == nil || len(res.Impact) == 0 {
		t.Fatal("expected partial result with impact rows")
	}
	if len(res.Scored) != 0 || len(res.Probabilities) != 0 {
		t.Error("no row may be classified without probabilities")
	}
	found := false
	for _, is := range res.Issues {
		if is.Kind == models.IssueInsufficientData {
			found = true
		}
	}
	if !found {
		t.Error("insufficient data not reported as an issue")
	}
}

func TestNewScoringServiceRejectsThresholds(t *testing.T) {
	opts := DefaultOptions()
	opts.Thresholds.LowP = 0.9
	_, err := NewScoringService(opts, zap.NewNop())
	if !errors.Is(err, ErrInvalidThresholds) {
		t.Errorf("error = %v, want ErrInvalidThresholds", err)
	}
}

func TestNewScoringServiceRejectsWeights(t *testing.T) {
	opts := DefaultOptions()
	opts.Weights = models.ImpactWeights{{Metric: "luck", Weight: 1}}
	if _, err := NewScoringService(opts, zap.NewNop()); err == nil {
		t.Error("expected error for unknown metric")
	}
}

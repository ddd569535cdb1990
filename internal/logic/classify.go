package logic

import (
	"fmt"
	"math"
	"sort"

	"github.com/riftluck/stats-api/internal/models"
)

// rule is one row of the decision table.
type rule struct {
	bucket models.Bucket
	match  func(t models.Thresholds, p, s float64, win bool) bool
}

// decisionTable is evaluated top down; the first matching rule wins. The
// categories overlap, so order is significant.
var decisionTable = []rule{
	{models.BucketExpectedWin, func(t models.Thresholds, p, s float64, win bool) bool {
		return p > t.HighP && win
	}},
	{models.BucketExpectedLoss, func(t models.Thresholds, p, s float64, win bool) bool {
		return p < t.LowP && !win
	}},
	{models.BucketLuckyWin, func(t models.Thresholds, p, s float64, win bool) bool {
		return p < t.LowP && s < t.LowImpact && win
	}},
	{models.BucketUnluckyLoss, func(t models.Thresholds, p, s float64, win bool) bool {
		return p > t.HighP && s > t.HighImpact && !win
	}},
	{models.BucketClutchWin, func(t models.Thresholds, p, s float64, win bool) bool {
		return p < t.LowP && s > t.HighImpact && win
	}},
	{models.BucketThrow, func(t models.Thresholds, p, s float64, win bool) bool {
		return p > t.HighP && s < t.LowImpact && !win
	}},
	{models.BucketUpsetWin, func(t models.Thresholds, p, s float64, win bool) bool {
		return p < t.LowP && win
	}},
	{models.BucketUpsetLoss, func(t models.Thresholds, p, s float64, win bool) bool {
		return p > t.HighP && !win
	}},
	{models.BucketTossupWin, func(t models.Thresholds, p, s float64, win bool) bool {
		return p >= t.LowP && p <= t.HighP && win
	}},
	{models.BucketTossupLoss, func(t models.Thresholds, p, s float64, win bool) bool {
		return p >= t.LowP && p <= t.HighP && !win
	}},
}

// ValidateThresholds checks the two orderings the decision table relies on.
func ValidateThresholds(t models.Thresholds) error {
	for _, v := range []float64{t.HighP, t.LowP, t.HighImpact, t.LowImpact} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ThresholdError{Thresholds: t, Reason: "thresholds must be finite"}
		}
	}
	if t.HighP <= t.LowP {
		return &ThresholdError{Thresholds: t, Reason: "high_p must be greater than low_p"}
	}
	if t.HighImpact <= t.LowImpact {
		return &ThresholdError{Thresholds: t, Reason: "high_impact must be greater than low_impact"}
	}
	return nil
}

// Classifier assigns outcome buckets with a fixed threshold set.
type Classifier struct {
	thresholds models.Thresholds
}

func NewClassifier(t models.Thresholds) (*Classifier, error) {
	if err := ValidateThresholds(t); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

func (c *Classifier) Thresholds() models.Thresholds { return c.thresholds }

// Classify returns the bucket of one (p, s, outcome) triple.
func (c *Classifier) Classify(p, s float64, win bool) (models.Bucket, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return "", fmt.Errorf("%w: p_win_10min %g outside [0, 1]", ErrUnclassifiable, p)
	}
	if math.IsNaN(s) {
		return "", fmt.Errorf("%w: impact score is NaN", ErrUnclassifiable)
	}
	for _, r := range decisionTable {
		if r.match(c.thresholds, p, s, win) {
			return r.bucket, nil
		}
	}
	return "", fmt.Errorf("%w: no rule matched p=%g s=%g win=%t", ErrUnclassifiable, p, s, win)
}

// Merge joins impact and probability rows on (match, player) and classifies
// every pair. Rows present on only one side are reported, not defaulted.
func (c *Classifier) Merge(impact []models.ImpactScoreRow, probs []models.WinProbabilityRow) ([]models.ScoredGameRow, []error) {
	type gameKey struct{ match, player string }
	byKey := make(map[gameKey]*models.WinProbabilityRow, len(probs))
	for i := range probs {
		byKey[gameKey{probs[i].MatchID, probs[i].PlayerID}] = &probs[i]
	}

	var errs []error
	seen := make(map[gameKey]bool, len(impact))
	out := make([]models.ScoredGameRow, 0, len(impact))
	for _, ir := range impact {
		k := gameKey{ir.MatchID, ir.PlayerID}
		seen[k] = true
		pr, ok := byKey[k]
		if !ok {
			errs = append(errs, &RowError{
				Err:      ErrUnmatched,
				MatchID:  ir.MatchID,
				PlayerID: ir.PlayerID,
				Role:     ir.Role.String(),
				Detail:   "no win probability",
			})
			continue
		}
		bucket, err := c.Classify(pr.PWin10Min, ir.ImpactScore, ir.Win)
		if err != nil {
			errs = append(errs, &RowError{
				Err:      err,
				MatchID:  ir.MatchID,
				PlayerID: ir.PlayerID,
				Role:     ir.Role.String(),
			})
			continue
		}
		out = append(out, scoredRow(ir, pr.PWin10Min, bucket))
	}
	for _, pr := range probs {
		if !seen[gameKey{pr.MatchID, pr.PlayerID}] {
			errs = append(errs, &RowError{
				Err:      ErrUnmatched,
				MatchID:  pr.MatchID,
				PlayerID: pr.PlayerID,
				Detail:   "no impact score",
			})
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].MatchID != out[b].MatchID {
			return out[a].MatchID < out[b].MatchID
		}
		if out[a].TeamID != out[b].TeamID {
			return out[a].TeamID < out[b].TeamID
		}
		return out[a].ImpactRankOnTeam < out[b].ImpactRankOnTeam
	})
	return out, errs
}

func scoredRow(ir models.ImpactScoreRow, p float64, bucket models.Bucket) models.ScoredGameRow {
	row := models.ScoredGameRow{
		MatchID:          ir.MatchID,
		PlayerID:         ir.PlayerID,
		TeamID:           ir.TeamID,
		Role:             ir.Role,
		ImpactScore:      ir.ImpactScore,
		ImpactRankOnTeam: ir.ImpactRankOnTeam,
		PWin10Min:        p,
		Win:              ir.Win,
		Bucket:           bucket,
	}
	for m, z := range ir.ZScores {
		switch m {
		case models.MetricDamageShare:
			row.ZDamageShare = &z
		case models.MetricKillParticipation:
			row.ZKillParticipation = &z
		case models.MetricCSPerMin:
			row.ZCSPerMin = &z
		case models.MetricVisionPerMin:
			row.ZVisionPerMin = &z
		default:
			if row.ZOther == nil {
				row.ZOther = make(map[models.Metric]float64)
			}
			row.ZOther[m] = z
		}
	}
	return row
}

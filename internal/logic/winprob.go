package logic

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/riftluck/stats-api/internal/models"
)

// EstimatorConfig configures the cross-validated win probability model.
type EstimatorConfig struct {
	Folds       int
	Seed        uint64
	MinPerClass int
	Features    []models.Feature
	Logistic    LogisticConfig
}

func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Folds:       5,
		Seed:        42,
		MinPerClass: 2,
		Features:    models.DefaultFeatures(),
		Logistic:    DefaultLogisticConfig(),
	}
}

// Estimator produces out-of-fold win probabilities from early-game
// differentials.
type Estimator struct {
	cfg EstimatorConfig
}

func NewEstimator(cfg EstimatorConfig) (*Estimator, error) {
	if cfg.Folds < 2 {
		return nil, fmt.Errorf("estimator: folds must be at least 2, got %d", cfg.Folds)
	}
	if cfg.MinPerClass < 1 {
		return nil, fmt.Errorf("estimator: min per class must be at least 1, got %d", cfg.MinPerClass)
	}
	if len(cfg.Features) == 0 {
		return nil, fmt.Errorf("estimator: no features configured")
	}
	return &Estimator{cfg: cfg}, nil
}

// EstimateResult holds one probability per eligible player-game and a
// summary of every fold.
type EstimateResult struct {
	Rows  []models.WinProbabilityRow
	Folds []models.FoldSummary
}

// teamSample is one (match, team) observation. All players on a team share
// the same 10 minute differentials and outcome.
type teamSample struct {
	matchID string
	teamID  int
	win     bool
	x       []float64
	rows    []int
	unit    int
}

// Estimate partitions matches into stratified folds, then fits one model per
// fold on the remaining folds and scores only the held-out fold. Rows without
// complete timeline features are skipped.
func (e *Estimator) Estimate(ctx context.Context, rows []models.DerivedFeatureRow) (*EstimateResult, error) {
	samples, units := e.buildSamples(rows)

	assign, err := StratifiedFolds(units, e.cfg.Folds, e.cfg.Seed)
	if err != nil {
		return nil, err
	}
	if err := e.checkFolds(samples, assign); err != nil {
		return nil, err
	}

	// All folds are fixed before any training starts. Each goroutine writes
	// only the probabilities of its held-out samples and its own summary.
	probs := make([]float64, len(samples))
	summaries := make([]models.FoldSummary, e.cfg.Folds)

	g, ctx := errgroup.WithContext(ctx)
	for f := 0; f < e.cfg.Folds; f++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := e.trainFold(f, samples, units, assign, probs)
			if err != nil {
				return err
			}
			summaries[f] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("win probability: %w", err)
	}

	res := &EstimateResult{Folds: summaries}
	for i, s := range samples {
		for _, idx := range s.rows {
			rec := rows[idx].Record
			res.Rows = append(res.Rows, models.WinProbabilityRow{
				MatchID:   rec.MatchID,
				PlayerID:  rec.PlayerID,
				TeamID:    rec.TeamID,
				Win:       rec.Win,
				PWin10Min: probs[i],
				Fold:      assign[s.unit],
			})
		}
	}
	sort.Slice(res.Rows, func(a, b int) bool {
		ra, rb := res.Rows[a], res.Rows[b]
		if ra.MatchID != rb.MatchID {
			return ra.MatchID < rb.MatchID
		}
		if ra.TeamID != rb.TeamID {
			return ra.TeamID < rb.TeamID
		}
		return ra.PlayerID < rb.PlayerID
	})
	return res, nil
}

func (e *Estimator) buildSamples(rows []models.DerivedFeatureRow) ([]teamSample, []FoldUnit) {
	type teamKey struct {
		match string
		team  int
	}
	byTeam := make(map[teamKey]int)
	var samples []teamSample
	for i := range rows {
		r := &rows[i]
		if !r.TimelineComplete {
			continue
		}
		k := teamKey{r.Record.MatchID, r.Record.TeamID}
		si, ok := byTeam[k]
		if !ok {
			x := make([]float64, len(e.cfg.Features))
			for j, f := range e.cfg.Features {
				x[j], _ = r.Feature(f)
			}
			si = len(samples)
			byTeam[k] = si
			samples = append(samples, teamSample{
				matchID: k.match,
				teamID:  k.team,
				win:     r.Record.Win,
				x:       x,
			})
		}
		samples[si].rows = append(samples[si].rows, i)
	}

	sort.Slice(samples, func(a, b int) bool {
		if samples[a].matchID != samples[b].matchID {
			return samples[a].matchID < samples[b].matchID
		}
		return samples[a].teamID < samples[b].teamID
	})

	var units []FoldUnit
	for i := range samples {
		s := &samples[i]
		if len(units) == 0 || units[len(units)-1].Key != s.matchID {
			units = append(units, FoldUnit{Key: s.matchID})
		}
		s.unit = len(units) - 1
		if s.win {
			units[s.unit].Wins++
		} else {
			units[s.unit].Losses++
		}
	}
	return samples, units
}

// checkFolds rejects partitions where a held-out fold has too few wins or
// losses to be scored meaningfully.
func (e *Estimator) checkFolds(samples []teamSample, assign []int) error {
	counts := make([]FoldCount, e.cfg.Folds)
	for f := range counts {
		counts[f].Fold = f
	}
	for _, s := range samples {
		c := &counts[assign[s.unit]]
		if s.win {
			c.Wins++
		} else {
			c.Losses++
		}
	}
	var offending []FoldCount
	for _, c := range counts {
		if c.Wins < e.cfg.MinPerClass || c.Losses < e.cfg.MinPerClass {
			offending = append(offending, c)
		}
	}
	if len(offending) > 0 {
		return &FoldError{
			Offending:   offending,
			Folds:       e.cfg.Folds,
			MinPerClass: e.cfg.MinPerClass,
			Samples:     len(samples),
		}
	}
	return nil
}

func (e *Estimator) trainFold(f int, samples []teamSample, units []FoldUnit, assign []int, probs []float64) (models.FoldSummary, error) {
	summary := models.FoldSummary{Index: f}
	for u, unit := range units {
		if assign[u] == f {
			summary.TestMatches = append(summary.TestMatches, unit.Key)
		} else {
			summary.TrainMatches = append(summary.TrainMatches, unit.Key)
		}
	}

	var X [][]float64
	var y []float64
	var test []int
	for i, s := range samples {
		if assign[s.unit] == f {
			test = append(test, i)
			if s.win {
				summary.Wins++
			} else {
				summary.Losses++
			}
			continue
		}
		X = append(X, s.x)
		if s.win {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	model, err := FitLogistic(X, y, e.cfg.Logistic)
	if err != nil {
		return summary, fmt.Errorf("fold %d: %w", f, err)
	}
	for _, i := range test {
		probs[i] = model.Predict(samples[i].x)
	}
	summary.Intercept = model.Intercept
	summary.Coefficients = model.Coefficients
	return summary, nil
}

package logic

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/riftluck/stats-api/internal/models"
)

// ImpactScorer standardizes metrics within role cohorts and combines them
// with a configurable weight vector.
type ImpactScorer struct {
	weights models.ImpactWeights
}

func NewImpactScorer(weights models.ImpactWeights) (*ImpactScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &ImpactScorer{weights: weights}, nil
}

// ImpactResult holds scored rows, the per-cohort statistics behind them, and
// the indices of rows that could not be scored.
type ImpactResult struct {
	Rows       []models.ImpactScoreRow
	Stats      []models.CohortStats
	Unscorable []int
}

type cohortOutcome struct {
	rows       []models.ImpactScoreRow
	stats      []models.CohortStats
	unscorable []int
	errs       []error
}

// Score computes z-scores, impact scores and team ranks. Cohorts are
// processed concurrently; each goroutine owns one outcome slot.
func (s *ImpactScorer) Score(ctx context.Context, rows []models.DerivedFeatureRow, cohorts Cohorts) (*ImpactResult, []error, error) {
	outcomes := make([]cohortOutcome, len(models.AllRoles))

	g, ctx := errgroup.WithContext(ctx)
	for i, role := range models.AllRoles {
		members := cohorts[role]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.scoreCohort(role, rows, members)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("impact score: %w", err)
	}

	res := &ImpactResult{}
	var errs []error
	for _, o := range outcomes {
		res.Rows = append(res.Rows, o.rows...)
		res.Stats = append(res.Stats, o.stats...)
		res.Unscorable = append(res.Unscorable, o.unscorable...)
		errs = append(errs, o.errs...)
	}
	sort.Ints(res.Unscorable)

	RankOnTeam(res.Rows)
	sort.Slice(res.Rows, func(a, b int) bool {
		ra, rb := res.Rows[a], res.Rows[b]
		if ra.MatchID != rb.MatchID {
			return ra.MatchID < rb.MatchID
		}
		if ra.TeamID != rb.TeamID {
			return ra.TeamID < rb.TeamID
		}
		return ra.ImpactRankOnTeam < rb.ImpactRankOnTeam
	})
	return res, errs, nil
}

func (s *ImpactScorer) scoreCohort(role models.Role, rows []models.DerivedFeatureRow, members []int) cohortOutcome {
	var out cohortOutcome
	if len(members) == 0 {
		return out
	}
	z := make(map[int]map[models.Metric]float64, len(members))

	for _, mw := range s.weights {
		var values []float64
		var owners []int
		for _, idx := range members {
			if v, ok := rows[idx].Metric(mw.Metric); ok {
				values = append(values, v)
				owners = append(owners, idx)
			}
		}

		mean, std := meanStdDev(values)
		if len(values) < 2 || std == 0 || allEqual(values) || math.IsNaN(std) {
			out.errs = append(out.errs, &CohortError{
				Role:    role,
				Metric:  mw.Metric,
				Size:    len(values),
				StdDev:  std,
				Members: memberKeys(rows, members),
			})
			continue
		}

		out.stats = append(out.stats, models.CohortStats{
			Role:   role,
			Metric: mw.Metric,
			Size:   len(values),
			Mean:   mean,
			StdDev: std,
		})
		for k, idx := range owners {
			if z[idx] == nil {
				z[idx] = make(map[models.Metric]float64, len(s.weights))
			}
			z[idx][mw.Metric] = (values[k] - mean) / std
		}
	}

	for _, idx := range members {
		scores, ok := z[idx]
		if !ok || len(scores) != len(s.weights) {
			out.unscorable = append(out.unscorable, idx)
			continue
		}
		rec := rows[idx].Record
		out.rows = append(out.rows, models.ImpactScoreRow{
			MatchID:     rec.MatchID,
			PlayerID:    rec.PlayerID,
			TeamID:      rec.TeamID,
			Role:        role,
			Win:         rec.Win,
			ZScores:     scores,
			ImpactScore: s.combine(scores),
		})
	}
	return out
}

// combine sums weight*z in weight-vector order.
func (s *ImpactScorer) combine(z map[models.Metric]float64) float64 {
	var total float64
	for _, mw := range s.weights {
		total += mw.Weight * z[mw.Metric]
	}
	return total
}

// RankOnTeam assigns impact_rank_on_team within every match x team group:
// 1 is the highest impact score, ties go to the lower player id.
func RankOnTeam(rows []models.ImpactScoreRow) {
	type teamKey struct {
		match string
		team  int
	}
	groups := make(map[teamKey][]int)
	for i := range rows {
		k := teamKey{rows[i].MatchID, rows[i].TeamID}
		groups[k] = append(groups[k], i)
	}
	for _, idxs := range groups {
		sort.Slice(idxs, func(a, b int) bool {
			ra, rb := &rows[idxs[a]], &rows[idxs[b]]
			if ra.ImpactScore != rb.ImpactScore {
				return ra.ImpactScore > rb.ImpactScore
			}
			return ra.PlayerID < rb.PlayerID
		})
		for rank, idx := range idxs {
			rows[idx].ImpactRankOnTeam = rank + 1
		}
	}
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanStdDev(values, nil)
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func memberKeys(rows []models.DerivedFeatureRow, members []int) []string {
	keys := make([]string, len(members))
	for i, idx := range members {
		keys[i] = rows[idx].Record.MatchID + "/" + rows[idx].Record.PlayerID
	}
	return keys
}

package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftluck/stats-api/internal/models"
)

// Options configures one scoring service.
type Options struct {
	Weights    models.ImpactWeights
	Estimator  EstimatorConfig
	Thresholds models.Thresholds
	Workers    int
}

func DefaultOptions() Options {
	return Options{
		Weights:    models.DefaultImpactWeights(),
		Estimator:  DefaultEstimatorConfig(),
		Thresholds: models.DefaultThresholds(),
		Workers:    4,
	}
}

type scoringService struct {
	opts       Options
	scorer     *ImpactScorer
	estimator  *Estimator
	classifier *Classifier
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewScoringService validates opts up front. Broken thresholds are rejected
// here so no run ever starts with them.
func NewScoringService(opts Options, logger *zap.Logger) (ScoringService, error) {
	classifier, err := NewClassifier(opts.Thresholds)
	if err != nil {
		return nil, err
	}
	scorer, err := NewImpactScorer(opts.Weights)
	if err != nil {
		return nil, err
	}
	estimator, err := NewEstimator(opts.Estimator)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &scoringService{
		opts:       opts,
		scorer:     scorer,
		estimator:  estimator,
		classifier: classifier,
		logger:     logger.Sugar(),
		now:        time.Now,
	}, nil
}

func (s *scoringService) Options() Options { return s.opts }

// Run executes the full pipeline. When the estimator cannot build balanced
// folds the partial result (impact scores and issues) is returned together
// with an error matching ErrInsufficientData.
func (s *scoringService) Run(ctx context.Context, in models.PipelineInput) (*models.RunResult, error) {
	res := &models.RunResult{
		RunID:      uuid.NewString(),
		CreatedAt:  s.now().UTC(),
		Records:    len(in.Records),
		Features:   s.opts.Estimator.Features,
		Thresholds: s.opts.Thresholds,
	}
	log := s.logger.With("run_id", res.RunID)

	var rows []models.DerivedFeatureRow
	err := s.stage("derive", func() error {
		var errs []error
		var err error
		rows, errs, err = DeriveFeatures(ctx, in, s.opts.Estimator.Features, s.opts.Workers)
		s.report(log, res, s.weightedOnly(errs))
		return err
	})
	if err != nil {
		return s.fail(res, err)
	}

	var impact *ImpactResult
	err = s.stage("impact", func() error {
		cohorts, errs := ResolveRoles(rows)
		s.report(log, res, errs)
		var err error
		impact, errs, err = s.scorer.Score(ctx, rows, cohorts)
		s.report(log, res, errs)
		return err
	})
	if err != nil {
		return s.fail(res, err)
	}
	res.Impact = impact.Rows
	res.Cohorts = impact.Stats

	var est *EstimateResult
	err = s.stage("win_probability", func() error {
		var err error
		est, err = s.estimator.Estimate(ctx, rows)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			s.report(log, res, []error{err})
			pipelineRuns.WithLabelValues("insufficient_data").Inc()
			log.Warnw("Win probability skipped", "error", err, "impact_rows", len(res.Impact))
			return res, err
		}
		return s.fail(res, err)
	}
	res.Probabilities = est.Rows
	res.Folds = est.Folds

	_ = s.stage("classify", func() error {
		scored, errs := s.classifier.Merge(res.Impact, res.Probabilities)
		s.report(log, res, withoutIncomplete(errs, rows))
		res.Scored = scored
		res.Luck = SummarizeLuck(scored)
		return nil
	})
	rowsScored.Add(float64(len(res.Scored)))
	pipelineRuns.WithLabelValues("ok").Inc()

	log.Infow("Pipeline run complete",
		"records", res.Records,
		"impact_rows", len(res.Impact),
		"probability_rows", len(res.Probabilities),
		"scored_rows", len(res.Scored),
		"issues", len(res.Issues),
	)
	return res, nil
}

func (s *scoringService) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

func (s *scoringService) fail(res *models.RunResult, err error) (*models.RunResult, error) {
	pipelineRuns.WithLabelValues("error").Inc()
	s.logger.Errorw("Pipeline run failed", "run_id", res.RunID, "error", err)
	return nil, fmt.Errorf("run %s: %w", res.RunID, err)
}

// weightedOnly drops undefined-ratio reports for metrics that carry no weight
// in this run; they cannot affect any score.
func (s *scoringService) weightedOnly(errs []error) []error {
	weighted := make(map[models.Metric]bool, len(s.opts.Weights))
	for _, m := range s.opts.Weights.Metrics() {
		weighted[m] = true
	}
	out := errs[:0]
	for _, err := range errs {
		var rowErr *RowError
		if errors.As(err, &rowErr) && errors.Is(err, ErrUndefinedRatio) && !weighted[rowErr.Metric] {
			continue
		}
		out = append(out, err)
	}
	return out
}

// withoutIncomplete drops unmatched reports for rows the derive stage already
// reported as timeline-incomplete; those never get a win probability.
func withoutIncomplete(errs []error, rows []models.DerivedFeatureRow) []error {
	type gameKey struct{ match, player string }
	incomplete := make(map[gameKey]bool)
	for i := range rows {
		if !rows[i].TimelineComplete {
			incomplete[gameKey{rows[i].Record.MatchID, rows[i].Record.PlayerID}] = true
		}
	}
	if len(incomplete) == 0 {
		return errs
	}
	out := errs[:0]
	for _, err := range errs {
		var rowErr *RowError
		if errors.As(err, &rowErr) && errors.Is(err, ErrUnmatched) &&
			incomplete[gameKey{rowErr.MatchID, rowErr.PlayerID}] {
			continue
		}
		out = append(out, err)
	}
	return out
}

func (s *scoringService) report(log *zap.SugaredLogger, res *models.RunResult, errs []error) {
	for _, err := range errs {
		issue := issueFrom(err)
		res.Issues = append(res.Issues, issue)
		issuesReported.WithLabelValues(string(issue.Kind)).Inc()
		log.Warnw("Pipeline issue",
			"kind", issue.Kind,
			"match_id", issue.MatchID,
			"player_id", issue.PlayerID,
			"role", issue.Role,
			"metric", issue.Metric,
			"error", err,
		)
	}
}

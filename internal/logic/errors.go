package logic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/riftluck/stats-api/internal/models"
)

var (
	ErrUndefinedRatio    = errors.New("undefined ratio")
	ErrUnknownRole       = errors.New("unknown role")
	ErrDegenerateCohort  = errors.New("degenerate cohort")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrInvalidThresholds = errors.New("invalid thresholds")
	ErrUnmatched         = errors.New("unmatched row")
	ErrUnclassifiable    = errors.New("unclassifiable row")
)

// RowError reports a condition on a single player-game.
type RowError struct {
	Err      error
	MatchID  string
	PlayerID string
	Role     string
	Metric   models.Metric
	Detail   string
}

func (e *RowError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "match %s player %s", e.MatchID, e.PlayerID)
	if e.Metric != "" {
		fmt.Fprintf(&b, " metric %s", e.Metric)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	return b.String()
}

func (e *RowError) Unwrap() error { return e.Err }

// CohortError reports a role cohort whose metric cannot be standardized.
// Members lists "match/player" keys of the rows left unscorable.
type CohortError struct {
	Role    models.Role
	Metric  models.Metric
	Size    int
	StdDev  float64
	Members []string
}

func (e *CohortError) Error() string {
	return fmt.Sprintf("%v: role %s metric %s has %d values, stddev %g",
		ErrDegenerateCohort, e.Role, e.Metric, e.Size, e.StdDev)
}

func (e *CohortError) Unwrap() error { return ErrDegenerateCohort }

// FoldCount is the class balance of one fold.
type FoldCount struct {
	Fold   int `json:"fold"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// FoldError reports folds that cannot be stratified meaningfully.
type FoldError struct {
	Offending   []FoldCount
	Folds       int
	MinPerClass int
	Samples     int
}

func (e *FoldError) Error() string {
	return fmt.Sprintf("%v: %d of %d folds have fewer than %d wins or losses (%d samples)",
		ErrInsufficientData, len(e.Offending), e.Folds, e.MinPerClass, e.Samples)
}

func (e *FoldError) Unwrap() error { return ErrInsufficientData }

// ThresholdError reports a classifier configuration with a broken ordering.
type ThresholdError struct {
	Thresholds models.Thresholds
	Reason     string
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%v: %s (high_p=%g low_p=%g high_impact=%g low_impact=%g)",
		ErrInvalidThresholds, e.Reason,
		e.Thresholds.HighP, e.Thresholds.LowP, e.Thresholds.HighImpact, e.Thresholds.LowImpact)
}

func (e *ThresholdError) Unwrap() error { return ErrInvalidThresholds }

// issueFrom converts a reported error into its tabular form.
func issueFrom(err error) models.Issue {
	issue := models.Issue{Message: err.Error()}

	var rowErr *RowError
	var cohortErr *CohortError
	switch {
	case errors.As(err, &rowErr):
		issue.MatchID = rowErr.MatchID
		issue.PlayerID = rowErr.PlayerID
		issue.Role = rowErr.Role
		issue.Metric = rowErr.Metric
	case errors.As(err, &cohortErr):
		issue.Role = cohortErr.Role.String()
		issue.Metric = cohortErr.Metric
	}

	switch {
	case errors.Is(err, ErrUndefinedRatio):
		issue.Kind = models.IssueUndefinedRatio
	case errors.Is(err, ErrUnknownRole):
		issue.Kind = models.IssueUnknownRole
	case errors.Is(err, ErrDegenerateCohort):
		issue.Kind = models.IssueDegenerateCohort
	case errors.Is(err, ErrInsufficientData):
		issue.Kind = models.IssueInsufficientData
	case errors.Is(err, errTimelineIncomplete):
		issue.Kind = models.IssueTimelineMissing
	case errors.Is(err, ErrUnmatched):
		issue.Kind = models.IssueUnmatched
	case errors.Is(err, ErrUnclassifiable):
		issue.Kind = models.IssueUnclassifiable
	}
	return issue
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// Bucket is the discrete outcome label assigned to a scored game.
type Bucket string

const (
	BucketExpectedWin  Bucket = "EXPECTED_WIN"
	BucketExpectedLoss Bucket = "EXPECTED_LOSS"
	BucketLuckyWin     Bucket = "LUCKY_WIN"
	BucketUnluckyLoss  Bucket = "UNLUCKY_LOSS"
	BucketClutchWin    Bucket = "CLUTCH_WIN"
	BucketThrow        Bucket = "THROW"
	BucketUpsetWin     Bucket = "UPSET_WIN"
	BucketUpsetLoss    Bucket = "UPSET_LOSS"
	BucketTossupWin    Bucket = "TOSSUP_WIN"
	BucketTossupLoss   Bucket = "TOSSUP_LOSS"
)

// AllBuckets lists the buckets in decision table order.
var AllBuckets = []Bucket{
	BucketExpectedWin, BucketExpectedLoss, BucketLuckyWin, BucketUnluckyLoss, BucketClutchWin,
	BucketThrow, BucketUpsetWin, BucketUpsetLoss, BucketTossupWin, BucketTossupLoss,
}

func ParseBucket(s string) (Bucket, error) {
	b := Bucket(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllBuckets {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// IssueKind mirrors the error taxonomy of the scoring pipeline.
type IssueKind string

const (
	IssueUndefinedRatio   IssueKind = "UndefinedRatio"
	IssueUnknownRole      IssueKind = "UnknownRole"
	IssueDegenerateCohort IssueKind = "DegenerateCohort"
	IssueInsufficientData IssueKind = "InsufficientData"
	IssueTimelineMissing  IssueKind = "TimelineIncomplete"
	IssueUnmatched        IssueKind = "Unmatched"
	IssueUnclassifiable   IssueKind = "Unclassifiable"
)

// Issue is a reported, non-fatal condition with the identifiers it concerns.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	MatchID  string    `json:"match_id,omitempty"`
	PlayerID string    `json:"player_id,omitempty"`
	Role     string    `json:"role,omitempty"`
	Metric   Metric    `json:"metric,omitempty"`
	Message  string    `json:"message"`
}

// CohortStats is the (mean, stddev) pair of one metric within one role.
type CohortStats struct {
	Role   Role    `json:"role"`
	Metric Metric  `json:"metric"`
	Size   int     `json:"size"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// FoldSummary records what one cross-validation fold trained on and scored.
type FoldSummary struct {
	Index        int       `json:"index"`
	TrainMatches []string  `json:"train_matches"`
	TestMatches  []string  `json:"test_matches"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// RunResult is everything one pipeline run produces.
type RunResult struct {
	RunID         string              `json:"run_id"`
	CreatedAt     time.Time           `json:"created_at"`
	Records       int                 `json:"records"`
	Impact        []ImpactScoreRow    `json:"impact"`
	Probabilities []WinProbabilityRow `json:"probabilities"`
	Scored        []ScoredGameRow     `json:"scored"`
	Luck          []LuckSummary       `json:"luck"`
	Folds         []FoldSummary       `json:"folds"`
	Cohorts       []CohortStats       `json:"cohorts"`
	Features      []Feature           `json:"features"`
	Thresholds    Thresholds          `json:"thresholds"`
	Issues        []Issue             `json:"issues"`
}

// ImpactAverages compares impact and expectation between wins and losses.
type ImpactAverages struct {
	Games     int     `json:"games"`
	AvgImpact float64 `json:"avg_impact"`
	AvgPWin   float64 `json:"avg_p_win_10min"`
}

// Report is the review summary shown next to the scored table.
type Report struct {
	PlayerID            string          `json:"player_id,omitempty"`
	Games               int             `json:"games"`
	Wins                int             `json:"wins"`
	Losses              int             `json:"losses"`
	BucketCounts        map[Bucket]int  `json:"bucket_counts"`
	WinAverages         ImpactAverages  `json:"win_averages"`
	LossAverages        ImpactAverages  `json:"loss_averages"`
	TopTwoImpactLosses  int             `json:"top_two_impact_losses"`
	TopTwoImpactLossPct *float64        `json:"top_two_impact_loss_rate"`
	HighImpactLosses    []ScoredGameRow `json:"high_impact_losses"`
	UnluckyLosses       []ScoredGameRow `json:"unlucky_losses"`
	ClutchWins          []ScoredGameRow `json:"clutch_wins"`
	Luck                LuckSummary     `json:"luck"`
}

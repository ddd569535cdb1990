package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Metric names a per-player impact metric that can be standardized within a
// role cohort and weighted into the impact score.
type Metric string

const (
	MetricDamageShare       Metric = "damage_share"
	MetricKillParticipation Metric = "kill_participation"
	MetricCSPerMin          Metric = "cs_per_min"
	MetricVisionPerMin      Metric = "vision_per_min"
	MetricGoldShare         Metric = "gold_share"
	MetricKDA               Metric = "kda"
)

var knownMetrics = map[Metric]bool{
	MetricDamageShare:       true,
	MetricKillParticipation: true,
	MetricCSPerMin:          true,
	MetricVisionPerMin:      true,
	MetricGoldShare:         true,
	MetricKDA:               true,
}

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !knownMetrics[m] {
		return "", fmt.Errorf("unknown metric %q", s)
	}
	return m, nil
}

// Feature names an early-game differential (team minus enemy at 10:00).
type Feature string

const (
	FeatureGoldDiff10    Feature = "gold_diff_10"
	FeatureXPDiff10      Feature = "xp_diff_10"
	FeatureCSDiff10      Feature = "cs_diff_10"
	FeatureKillsDiff10   Feature = "kills_diff_10"
	FeatureDragonsDiff10 Feature = "dragons_diff_10"
	FeaturePlatesDiff10  Feature = "plates_diff_10"
)

var knownFeatures = map[Feature]bool{
	FeatureGoldDiff10:    true,
	FeatureXPDiff10:      true,
	FeatureCSDiff10:      true,
	FeatureKillsDiff10:   true,
	FeatureDragonsDiff10: true,
	FeaturePlatesDiff10:  true,
}

// DefaultFeatures are the timeline-only differentials; objective counts are
// opt-in because older timelines do not carry them.
func DefaultFeatures() []Feature {
	return []Feature{FeatureGoldDiff10, FeatureXPDiff10, FeatureCSDiff10, FeatureKillsDiff10}
}

// ParseFeatures parses a comma separated feature list.
func ParseFeatures(s string) ([]Feature, error) {
	var out []Feature
	seen := make(map[Feature]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := Feature(strings.ToLower(part))
		if !knownFeatures[f] {
			return nil, fmt.Errorf("unknown feature %q", part)
		}
		if seen[f] {
			return nil, fmt.Errorf("duplicate feature %q", part)
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty feature list")
	}
	return out, nil
}

// MetricWeight is one entry of the impact weight vector.
type MetricWeight struct {
	Metric Metric  `json:"metric" yaml:"metric"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// ImpactWeights is an ordered weight vector. Order fixes the summation order
// of the impact score so results are reproducible bit for bit.
type ImpactWeights []MetricWeight

func DefaultImpactWeights() ImpactWeights {
	return ImpactWeights{
		{Metric: MetricDamageShare, Weight: 0.35},
		{Metric: MetricKillParticipation, Weight: 0.30},
		{Metric: MetricCSPerMin, Weight: 0.25},
		{Metric: MetricVisionPerMin, Weight: 0.10},
	}
}

// Metrics returns the metrics of the vector in order.
func (w ImpactWeights) Metrics() []Metric {
	out := make([]Metric, len(w))
	for i, mw := range w {
		out[i] = mw.Metric
	}
	return out
}

func (w ImpactWeights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("impact weights: empty vector")
	}
	seen := make(map[Metric]bool, len(w))
	for _, mw := range w {
		if !knownMetrics[mw.Metric] {
			return fmt.Errorf("impact weights: unknown metric %q", mw.Metric)
		}
		if seen[mw.Metric] {
			return fmt.Errorf("impact weights: duplicate metric %q", mw.Metric)
		}
		if math.IsNaN(mw.Weight) || math.IsInf(mw.Weight, 0) {
			return fmt.Errorf("impact weights: non-finite weight for %q", mw.Metric)
		}
		seen[mw.Metric] = true
	}
	return nil
}

// ParseImpactWeights parses "damage_share=0.35,kill_participation=0.3".
func ParseImpactWeights(s string) (ImpactWeights, error) {
	var out ImpactWeights
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("impact weights: malformed entry %q", part)
		}
		m, err := ParseMetric(name)
		if err != nil {
			return nil, fmt.Errorf("impact weights: %w", err)
		}
		wt, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("impact weights: bad weight for %s: %w", m, err)
		}
		out = append(out, MetricWeight{Metric: m, Weight: wt})
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Thresholds drive the outcome classifier.
type Thresholds struct {
	HighP      float64 `json:"high_p" yaml:"high_p"`
	LowP       float64 `json:"low_p" yaml:"low_p"`
	HighImpact float64 `json:"high_impact" yaml:"high_impact"`
	LowImpact  float64 `json:"low_impact" yaml:"low_impact"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{HighP: 0.65, LowP: 0.40, HighImpact: 0.5, LowImpact: -0.5}
}

package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riftluck_pipeline_runs_total",
		Help: "Pipeline runs by final status",
	}, []string{"status"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riftluck_pipeline_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	issuesReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riftluck_pipeline_issues_total",
		Help: "Reported row, cohort and fold issues by kind",
	}, []string{"kind"})

	rowsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftluck_rows_scored_total",
		Help: "Player-games that received an outcome bucket",
	})
)

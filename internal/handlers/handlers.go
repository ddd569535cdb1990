package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/riftluck/stats-api/internal/cache"
	"github.com/riftluck/stats-api/internal/logic"
	"github.com/riftluck/stats-api/internal/models"
	"github.com/riftluck/stats-api/internal/store"
)

// MaxBodySize limits the size of run request bodies to 32MB
const MaxBodySize = 32 << 20

// ExportQueue defines the interface for the scored row export pool
type ExportQueue interface {
	EnqueueRun(run *models.RunResult) int
	QueueDepth() int
}

// RecordSource loads and persists pipeline input.
type RecordSource interface {
	Load(ctx context.Context, f store.Filter) (models.PipelineInput, error)
	Save(ctx context.Context, in models.PipelineInput) (int64, error)
}

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Scoring     logic.ScoringService
	Runs        cache.RunStore
	Records     RecordSource
	Export      ExportQueue
	Checks      map[string]Pinger
	FocusPlayer string
	ReportTopN  int
	Logger      *zap.Logger
}

type Handler struct {
	scoring     logic.ScoringService
	runs        cache.RunStore
	records     RecordSource
	export      ExportQueue
	checks      map[string]Pinger
	focusPlayer string
	reportTopN  int
	logger      *zap.SugaredLogger
	validator   *validator.Validate
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Runs == nil {
		cfg.Runs = cache.NewMemoryStore()
	}
	if cfg.ReportTopN <= 0 {
		cfg.ReportTopN = 10
	}
	return &Handler{
		scoring:     cfg.Scoring,
		runs:        cfg.Runs,
		records:     cfg.Records,
		export:      cfg.Export,
		checks:      cfg.Checks,
		focusPlayer: cfg.FocusPlayer,
		reportTopN:  cfg.ReportTopN,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
	}
}

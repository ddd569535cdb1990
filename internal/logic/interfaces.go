package logic

import (
	"context"

	"github.com/riftluck/stats-api/internal/models"
)

// ScoringService runs the full scoring pipeline over one input batch.
type ScoringService interface {
	Run(ctx context.Context, in models.PipelineInput) (*models.RunResult, error)
	Options() Options
}

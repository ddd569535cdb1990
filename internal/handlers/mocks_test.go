package handlers

import (
	"context"

	"github.com/riftluck/stats-api/internal/logic"
	"github.com/riftluck/stats-api/internal/models"
	"github.com/riftluck/stats-api/internal/store"
)

// MockScoringService
type MockScoringService struct {
	RunFunc func(ctx context.Context, in models.PipelineInput) (*models.RunResult, error)
	Calls   []models.PipelineInput
}

func (m *MockScoringService) Run(ctx context.Context, in models.PipelineInput) (*models.RunResult, error) {
	m.Calls = append(m.Calls, in)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, in)
	}
	return &models.RunResult{RunID: "run-1", Records: len(in.Records)}, nil
}

func (m *MockScoringService) Options() logic.Options { return logic.DefaultOptions() }

// MockRecordSource
type MockRecordSource struct {
	LoadFunc func(ctx context.Context, f store.Filter) (models.PipelineInput, error)
	Saved    []models.PipelineInput
}

func (m *MockRecordSource) Load(ctx context.Context, f store.Filter) (models.PipelineInput, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, f)
	}
	return models.PipelineInput{}, nil
}

func (m *MockRecordSource) Save(ctx context.Context, in models.PipelineInput) (int64, error) {
	m.Saved = append(m.Saved, in)
	return int64(len(in.Records)), nil
}

// MockExportQueue
type MockExportQueue struct {
	Runs  []*models.RunResult
	Depth int
}

func (m *MockExportQueue) EnqueueRun(run *models.RunResult) int {
	m.Runs = append(m.Runs, run)
	return len(run.Scored)
}

func (m *MockExportQueue) QueueDepth() int { return m.Depth }

// MockPinger
type MockPinger struct {
	Err error
}

func (m *MockPinger) Ping(ctx context.Context) error { return m.Err }

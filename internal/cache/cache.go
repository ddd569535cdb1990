// Package cache keeps the latest pipeline run and per-player luck summaries
// available to the HTTP layer.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/riftluck/stats-api/internal/models"
)

var ErrNotFound = errors.New("not found")

// RunStore holds finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.RunResult) error
	LatestRun(ctx context.Context) (*models.RunResult, error)
	Run(ctx context.Context, runID string) (*models.RunResult, error)
	PlayerLuck(ctx context.Context, playerID string) (*models.LuckSummary, error)
}

// MemoryStore is the in-process RunStore used when no Redis is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	latest *models.RunResult
	runs   map[string]*models.RunResult
	luck   map[string]models.LuckSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*models.RunResult)}
}

// SaveRun replaces the luck summaries only when run scored something, so a
// partial run leaves the previous summaries in place.
func (m *MemoryStore) SaveRun(ctx context.Context, run *models.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = run
	m.runs[run.RunID] = run
	if len(run.Scored) == 0 {
		return nil
	}
	luck := make(map[string]models.LuckSummary, len(run.Luck))
	for _, l := range run.Luck {
		luck[l.PlayerID] = l
	}
	m.luck = luck
	return nil
}

func (m *MemoryStore) LatestRun(ctx context.Context) (*models.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return nil, ErrNotFound
	}
	return m.latest, nil
}

func (m *MemoryStore) Run(ctx context.Context, runID string) (*models.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

func (m *MemoryStore) PlayerLuck(ctx context.Context, playerID string) (*models.LuckSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.luck[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

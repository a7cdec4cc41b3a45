package memory

import (
	"context"
	"sync"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	runs    map[string]*storage.ComparisonRun
	results map[string][]domain.SimulationResult
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		runs:    make(map[string]*storage.ComparisonRun),
		results: make(map[string][]domain.SimulationResult),
	}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// InsertRun adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *ResultStore) InsertRun(_ context.Context, run *storage.ComparisonRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *run
	s.runs[run.RunID] = &copy
	return nil
}

// GetRun retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetRun(_ context.Context, runID string) (*storage.ComparisonRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *run
	return &copy, nil
}

// InsertResults adds the results of a run in batch order. The run must
// exist; results for a run are written once.
func (s *ResultStore) InsertResults(_ context.Context, runID string, results []domain.SimulationResult) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; !exists {
		return storage.ErrNotFound
	}
	if _, exists := s.results[runID]; exists {
		return storage.ErrDuplicateKey
	}
	s.results[runID] = append([]domain.SimulationResult(nil), results...)
	return nil
}

// GetResults retrieves all results for a run in insertion order.
func (s *ResultStore) GetResults(_ context.Context, runID string) ([]domain.SimulationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, ok := s.results[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]domain.SimulationResult(nil), results...), nil
}

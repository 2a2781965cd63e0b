package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
// Records are kept in their JSON form so stored reports are never shared with callers.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string][]byte // keyed by run_id
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string][]byte),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if run_id exists.
func (s *ReportStore) Insert(_ context.Context, r *domain.EvaluationRecord) error {
	if err := storage.ValidateRecord(r); err != nil {
		return err
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode evaluation record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[r.RunID] = raw
	return nil
}

// GetByRunID retrieves a record by run ID. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByRunID(_ context.Context, runID string) (*domain.EvaluationRecord, error) {
	s.mu.RLock()
	raw, exists := s.data[runID]
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}
	return decodeRecord(raw)
}

// ListByExperiment retrieves the newest records for an experiment, newest first.
func (s *ReportStore) ListByExperiment(_ context.Context, experimentID string, limit int) ([]*domain.EvaluationRecord, error) {
	s.mu.RLock()
	var result []*domain.EvaluationRecord
	for _, raw := range s.data {
		r, err := decodeRecord(raw)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if r.ExperimentID == experimentID {
			result = append(result, r)
		}
	}
	s.mu.RUnlock()

	// Sort by evaluated_at DESC, run_id ASC for ties
	sort.Slice(result, func(i, j int) bool {
		if !result[i].EvaluatedAt.Equal(result[j].EvaluatedAt) {
			return result[i].EvaluatedAt.After(result[j].EvaluatedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func decodeRecord(raw []byte) (*domain.EvaluationRecord, error) {
	var r domain.EvaluationRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode evaluation record: %w", err)
	}
	return &r, nil
}

// Verify interface compliance at compile time.
var _ storage.ReportStore = (*ReportStore)(nil)

package memory

import (
	"context"
	"sort"
	"sync"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
)

// DailyMetricsStore is an in-memory implementation of storage.DailyMetricsStore.
type DailyMetricsStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.DailyMetrics // experiment_id -> date -> day
}

// NewDailyMetricsStore creates a new in-memory daily metrics store.
func NewDailyMetricsStore() *DailyMetricsStore {
	return &DailyMetricsStore{
		data: make(map[string]map[string]domain.DailyMetrics),
	}
}

// UpsertBulk writes days for an experiment, replacing existing dates.
func (s *DailyMetricsStore) UpsertBulk(_ context.Context, experimentID string, days []domain.DailyMetrics) error {
	if err := storage.ValidateDays(experimentID, days); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byDate, ok := s.data[experimentID]
	if !ok {
		byDate = make(map[string]domain.DailyMetrics, len(days))
		s.data[experimentID] = byDate
	}
	for _, d := range days {
		byDate[d.Date] = copyDay(d)
	}
	return nil
}

// GetByRange retrieves days within [start, end] (inclusive), ordered by date ASC.
func (s *DailyMetricsStore) GetByRange(_ context.Context, experimentID, start, end string) ([]domain.DailyMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.DailyMetrics
	// Dates are YYYY-MM-DD, so lexical order is chronological.
	for date, d := range s.data[experimentID] {
		if date >= start && date <= end {
			result = append(result, copyDay(d))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})

	return result, nil
}

// copyDay detaches the optional fields so callers cannot mutate stored values.
func copyDay(d domain.DailyMetrics) domain.DailyMetrics {
	d.BounceRate = copyFloat(d.BounceRate)
	d.MobileSessions = copyFloat(d.MobileSessions)
	d.MobileRevenue = copyFloat(d.MobileRevenue)
	return d
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Verify interface compliance at compile time.
var _ storage.DailyMetricsStore = (*DailyMetricsStore)(nil)

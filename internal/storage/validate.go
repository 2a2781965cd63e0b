package storage

import (
	"time"

	"ads-guardrail/internal/domain"
)

// ValidateDays checks the keys every backend relies on before writing a batch.
func ValidateDays(experimentID string, days []domain.DailyMetrics) error {
	if experimentID == "" {
		return ErrInvalidInput
	}
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		if _, err := time.Parse(domain.DateLayout, d.Date); err != nil {
			return ErrInvalidInput
		}
		if _, dup := seen[d.Date]; dup {
			return ErrInvalidInput
		}
		seen[d.Date] = struct{}{}
	}
	return nil
}

// ValidateRecord checks the fields every backend indexes on.
func ValidateRecord(r *domain.EvaluationRecord) error {
	if r == nil || r.RunID == "" || r.ExperimentID == "" || r.Report == nil {
		return ErrInvalidInput
	}
	if !r.Action.Valid() {
		return ErrInvalidInput
	}
	return nil
}

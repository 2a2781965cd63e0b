package storage

import (
	"context"

	"ads-guardrail/internal/domain"
)

// DailyMetricsStore provides access to per-day experiment metrics.
type DailyMetricsStore interface {
	// UpsertBulk writes days for an experiment. An existing (experiment_id, date)
	// row is replaced. Fails the entire batch on invalid input.
	UpsertBulk(ctx context.Context, experimentID string, days []domain.DailyMetrics) error

	// GetByRange retrieves days within [start, end] (inclusive, YYYY-MM-DD), ordered by date ASC.
	GetByRange(ctx context.Context, experimentID, start, end string) ([]domain.DailyMetrics, error)
}

// ReportStore provides access to evaluation history. Append-only.
type ReportStore interface {
	// Insert adds a new evaluation record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.EvaluationRecord) error

	// GetByRunID retrieves a record by run ID. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.EvaluationRecord, error)

	// ListByExperiment retrieves the newest records for an experiment, newest first.
	// A non-positive limit returns every record.
	ListByExperiment(ctx context.Context, experimentID string, limit int) ([]*domain.EvaluationRecord, error)
}

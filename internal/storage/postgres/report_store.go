package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
// Reports are stored as JSONB next to the indexed header columns.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if run_id exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.EvaluationRecord) error {
	if err := storage.ValidateRecord(r); err != nil {
		return err
	}

	report, err := json.Marshal(r.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	query := `
		INSERT INTO evaluation_records (
			run_id, experiment_id, window_label, fingerprint, action, evaluated_at, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID,
		r.ExperimentID,
		r.WindowLabel,
		r.Fingerprint,
		string(r.Action),
		r.EvaluatedAt.UTC(),
		report,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert evaluation record: %w", err)
	}
	return nil
}

// GetByRunID retrieves a record by run ID. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByRunID(ctx context.Context, runID string) (*domain.EvaluationRecord, error) {
	query := `
		SELECT run_id, experiment_id, window_label, fingerprint, action, evaluated_at, report
		FROM evaluation_records
		WHERE run_id = $1
	`

	r, err := scanRecord(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get evaluation record: %w", err)
	}
	return r, nil
}

// ListByExperiment retrieves the newest records for an experiment, newest first.
func (s *ReportStore) ListByExperiment(ctx context.Context, experimentID string, limit int) ([]*domain.EvaluationRecord, error) {
	query := `
		SELECT run_id, experiment_id, window_label, fingerprint, action, evaluated_at, report
		FROM evaluation_records
		WHERE experiment_id = $1
		ORDER BY evaluated_at DESC, run_id ASC
	`
	args := []any{experimentID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluation records: %w", err)
	}
	defer rows.Close()

	var result []*domain.EvaluationRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation records: %w", err)
	}
	return result, nil
}

func scanRecord(row pgx.Row) (*domain.EvaluationRecord, error) {
	var r domain.EvaluationRecord
	var action string
	var report []byte

	err := row.Scan(
		&r.RunID,
		&r.ExperimentID,
		&r.WindowLabel,
		&r.Fingerprint,
		&action,
		&r.EvaluatedAt,
		&report,
	)
	if err != nil {
		return nil, err
	}

	r.Action = domain.Action(action)
	r.EvaluatedAt = r.EvaluatedAt.UTC()
	r.Report = &domain.GuardrailReport{}
	if err := json.Unmarshal(report, r.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// Package sqlite keeps evaluation history in a local SQLite file for the CLI
// and single-box deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
	"ads-guardrail/internal/storage/migrations"
)

// timeLayout is fixed-width so evaluated_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ReportStore implements storage.ReportStore on a SQLite database.
type ReportStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*ReportStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &ReportStore{db: db}, nil
}

// Close closes the database.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// Insert adds a new record. Returns ErrDuplicateKey if run_id exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.EvaluationRecord) error {
	if err := storage.ValidateRecord(r); err != nil {
		return err
	}

	report, err := json.Marshal(r.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluation_records (
			run_id, experiment_id, window_label, fingerprint, action, evaluated_at, report
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.ExperimentID, r.WindowLabel, r.Fingerprint, string(r.Action),
		r.EvaluatedAt.UTC().Format(timeLayout), string(report),
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert evaluation record: %w", err)
	}
	return nil
}

// GetByRunID retrieves a record by run ID. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByRunID(ctx context.Context, runID string) (*domain.EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, experiment_id, window_label, fingerprint, action, evaluated_at, report
		FROM evaluation_records
		WHERE run_id = ?`, runID)

	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get evaluation record: %w", err)
	}
	return r, nil
}

// ListByExperiment retrieves the newest records for an experiment, newest first.
func (s *ReportStore) ListByExperiment(ctx context.Context, experimentID string, limit int) ([]*domain.EvaluationRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, experiment_id, window_label, fingerprint, action, evaluated_at, report
		FROM evaluation_records
		WHERE experiment_id = ?
		ORDER BY evaluated_at DESC, run_id ASC
		LIMIT ?`, experimentID, limit)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.EvaluationRecord, error) {
	var (
		r           domain.EvaluationRecord
		action      string
		evaluatedAt string
		report      string
	)
	if err := row.Scan(&r.RunID, &r.ExperimentID, &r.WindowLabel, &r.Fingerprint, &action, &evaluatedAt, &report); err != nil {
		return nil, err
	}

	at, err := time.Parse(timeLayout, evaluatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse evaluated_at %q: %w", evaluatedAt, err)
	}
	r.EvaluatedAt = at
	r.Action = domain.Action(action)
	r.Report = &domain.GuardrailReport{}
	if err := json.Unmarshal([]byte(report), r.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// isConstraintError reports a primary key or unique violation.
func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

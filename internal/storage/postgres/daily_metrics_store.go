package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
)

// DailyMetricsStore implements storage.DailyMetricsStore using PostgreSQL.
type DailyMetricsStore struct {
	pool *Pool
}

// NewDailyMetricsStore creates a new DailyMetricsStore.
func NewDailyMetricsStore(pool *Pool) *DailyMetricsStore {
	return &DailyMetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyMetricsStore = (*DailyMetricsStore)(nil)

// UpsertBulk writes days in one transaction. Existing (experiment_id, date) rows are replaced.
func (s *DailyMetricsStore) UpsertBulk(ctx context.Context, experimentID string, days []domain.DailyMetrics) error {
	if err := storage.ValidateDays(experimentID, days); err != nil {
		return err
	}
	if len(days) == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_metrics (
			experiment_id, metric_date,
			find_submits, find_views, report_find_clicks, report_views,
			avg_engagement_seconds, bounce_rate, mobile_sessions, mobile_revenue,
			user_facing_flow_breakage
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (experiment_id, metric_date) DO UPDATE SET
			find_submits = EXCLUDED.find_submits,
			find_views = EXCLUDED.find_views,
			report_find_clicks = EXCLUDED.report_find_clicks,
			report_views = EXCLUDED.report_views,
			avg_engagement_seconds = EXCLUDED.avg_engagement_seconds,
			bounce_rate = EXCLUDED.bounce_rate,
			mobile_sessions = EXCLUDED.mobile_sessions,
			mobile_revenue = EXCLUDED.mobile_revenue,
			user_facing_flow_breakage = EXCLUDED.user_facing_flow_breakage,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, d := range days {
		batch.Queue(query,
			experimentID,
			d.Date,
			d.FindSubmits,
			d.FindViews,
			d.ReportFindClicks,
			d.ReportViews,
			d.AvgEngagementSeconds,
			d.BounceRate,
			d.MobileSessions,
			d.MobileRevenue,
			d.UserFacingFlowBreakage,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRange retrieves days within [start, end] (inclusive), ordered by date ASC.
func (s *DailyMetricsStore) GetByRange(ctx context.Context, experimentID, start, end string) ([]domain.DailyMetrics, error) {
	query := `
		SELECT to_char(metric_date, 'YYYY-MM-DD'),
			find_submits, find_views, report_find_clicks, report_views,
			avg_engagement_seconds, bounce_rate, mobile_sessions, mobile_revenue,
			user_facing_flow_breakage
		FROM daily_metrics
		WHERE experiment_id = $1 AND metric_date >= $2::date AND metric_date <= $3::date
		ORDER BY metric_date ASC
	`

	rows, err := s.pool.Query(ctx, query, experimentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get daily metrics by range: %w", err)
	}
	defer rows.Close()

	var result []domain.DailyMetrics
	for rows.Next() {
		var d domain.DailyMetrics
		err := rows.Scan(
			&d.Date,
			&d.FindSubmits,
			&d.FindViews,
			&d.ReportFindClicks,
			&d.ReportViews,
			&d.AvgEngagementSeconds,
			&d.BounceRate,
			&d.MobileSessions,
			&d.MobileRevenue,
			&d.UserFacingFlowBreakage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily metrics: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metrics: %w", err)
	}

	return result, nil
}

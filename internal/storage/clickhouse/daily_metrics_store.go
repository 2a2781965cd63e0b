package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
)

// Placement event types recorded in placement_events.
const (
	EventFindView        = "find_view"
	EventFindSubmit      = "find_submit"
	EventReportView      = "report_view"
	EventReportFindClick = "report_find_click"
	EventSessionEnd      = "session_end"
	EventFlowBreakage    = "flow_breakage"
)

// PlacementEvent is one raw collector event.
// Engagement, bounce and revenue are only meaningful on session_end events.
type PlacementEvent struct {
	ExperimentID      string
	EventTime         time.Time
	SessionID         string
	EventType         string
	IsMobile          bool
	EngagementSeconds float64
	Bounced           bool
	Revenue           float64
}

// DailyMetricsStore implements storage.DailyMetricsStore using ClickHouse.
// Days are derived from placement_events; rows written with UpsertBulk
// take precedence over derived days for the same date.
type DailyMetricsStore struct {
	conn *Conn
}

// NewDailyMetricsStore creates a new DailyMetricsStore.
func NewDailyMetricsStore(conn *Conn) *DailyMetricsStore {
	return &DailyMetricsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyMetricsStore = (*DailyMetricsStore)(nil)

// InsertEvents appends raw placement events in one batch.
func (s *DailyMetricsStore) InsertEvents(ctx context.Context, events []PlacementEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO placement_events (
			experiment_id, event_date, event_time, session_id, event_type,
			is_mobile, engagement_seconds, bounced, revenue
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if e.ExperimentID == "" || e.EventType == "" {
			return storage.ErrInvalidInput
		}
		ts := e.EventTime.UTC()
		err = batch.Append(
			e.ExperimentID, ts, ts, e.SessionID, e.EventType,
			boolToUInt8(e.IsMobile), e.EngagementSeconds, boolToUInt8(e.Bounced), e.Revenue,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// UpsertBulk writes pre-aggregated days. ReplacingMergeTree keeps the latest version.
func (s *DailyMetricsStore) UpsertBulk(ctx context.Context, experimentID string, days []domain.DailyMetrics) error {
	if err := storage.ValidateDays(experimentID, days); err != nil {
		return err
	}
	if len(days) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_metrics (
			experiment_id, metric_date,
			find_submits, find_views, report_find_clicks, report_views,
			avg_engagement_seconds, bounce_rate, mobile_sessions, mobile_revenue,
			user_facing_flow_breakage, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := time.Now().UTC()
	for _, d := range days {
		date, _ := time.Parse(domain.DateLayout, d.Date)
		err = batch.Append(
			experimentID, date,
			d.FindSubmits, d.FindViews, d.ReportFindClicks, d.ReportViews,
			d.AvgEngagementSeconds, d.BounceRate, d.MobileSessions, d.MobileRevenue,
			boolToUInt8(d.UserFacingFlowBreakage), version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRange retrieves days within [start, end] (inclusive), ordered by date ASC.
func (s *DailyMetricsStore) GetByRange(ctx context.Context, experimentID, start, end string) ([]domain.DailyMetrics, error) {
	byDate := make(map[string]domain.DailyMetrics)

	derived, err := s.aggregateEvents(ctx, experimentID, start, end)
	if err != nil {
		return nil, err
	}
	for _, d := range derived {
		byDate[d.Date] = d
	}

	stored, err := s.loadStored(ctx, experimentID, start, end)
	if err != nil {
		return nil, err
	}
	for _, d := range stored {
		byDate[d.Date] = d
	}

	result := make([]domain.DailyMetrics, 0, len(byDate))
	for _, d := range byDate {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

// aggregateEvents derives one DailyMetrics per event_date.
// Bounce and mobile fields are NULL on days without matching sessions.
func (s *DailyMetricsStore) aggregateEvents(ctx context.Context, experimentID, start, end string) ([]domain.DailyMetrics, error) {
	query := `
		SELECT
			toString(event_date) AS metric_date,
			toFloat64(countIf(event_type = 'find_submit')) AS find_submits,
			toFloat64(countIf(event_type = 'find_view')) AS find_views,
			toFloat64(countIf(event_type = 'report_find_click')) AS report_find_clicks,
			toFloat64(countIf(event_type = 'report_view')) AS report_views,
			ifNotFinite(avgIf(engagement_seconds, event_type = 'session_end'), 0) AS avg_engagement_seconds,
			if(countIf(event_type = 'session_end') = 0, NULL,
				avgIf(toFloat64(bounced), event_type = 'session_end')) AS bounce_rate,
			if(countIf(event_type = 'session_end' AND is_mobile = 1) = 0, NULL,
				toFloat64(countIf(event_type = 'session_end' AND is_mobile = 1))) AS mobile_sessions,
			if(countIf(event_type = 'session_end' AND is_mobile = 1) = 0, NULL,
				sumIf(revenue, event_type = 'session_end' AND is_mobile = 1)) AS mobile_revenue,
			max(event_type = 'flow_breakage') AS user_facing_flow_breakage
		FROM placement_events
		WHERE experiment_id = ? AND event_date >= toDate(?) AND event_date <= toDate(?)
		GROUP BY event_date
		ORDER BY event_date ASC
	`

	rows, err := s.conn.Query(ctx, query, experimentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("aggregate placement events: %w", err)
	}
	defer rows.Close()

	return scanDays(rows)
}

func (s *DailyMetricsStore) loadStored(ctx context.Context, experimentID, start, end string) ([]domain.DailyMetrics, error) {
	query := `
		SELECT
			toString(metric_date),
			find_submits, find_views, report_find_clicks, report_views,
			avg_engagement_seconds, bounce_rate, mobile_sessions, mobile_revenue,
			user_facing_flow_breakage
		FROM daily_metrics FINAL
		WHERE experiment_id = ? AND metric_date >= toDate(?) AND metric_date <= toDate(?)
		ORDER BY metric_date ASC
	`

	rows, err := s.conn.Query(ctx, query, experimentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query daily metrics: %w", err)
	}
	defer rows.Close()

	return scanDays(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanDays(rows rowScanner) ([]domain.DailyMetrics, error) {
	var result []domain.DailyMetrics
	for rows.Next() {
		var d domain.DailyMetrics
		var breakage uint8
		err := rows.Scan(
			&d.Date,
			&d.FindSubmits, &d.FindViews, &d.ReportFindClicks, &d.ReportViews,
			&d.AvgEngagementSeconds, &d.BounceRate, &d.MobileSessions, &d.MobileRevenue,
			&breakage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily metrics: %w", err)
		}
		d.UserFacingFlowBreakage = breakage != 0
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metrics: %w", err)
	}
	return result, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

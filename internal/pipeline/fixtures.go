package pipeline

import (
	"context"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
)

// FixtureExperimentID is the experiment the demo fixtures are stored under.
const FixtureExperimentID = "demo-ads-placement"

// FixtureBaseline returns the pre-experiment baseline of the demo experiment.
func FixtureBaseline() domain.BaselineMetrics {
	return domain.BaselineMetrics{
		FindSubmitRate:          0.12,
		ReportClickRate:         0.30,
		AvgEngagementSeconds:    48,
		BounceRate:              domain.Float64(0.38),
		MobileRevenuePerSession: domain.Float64(0.050),
	}
}

// FixtureDays returns two weeks of demo data: a healthy first week (window A)
// and a second week (window B) where report clicks sag and bounce rises.
func FixtureDays() []domain.DailyMetrics {
	type row struct {
		date                        string
		submits, clicks, engagement float64
		bounce, revenue             float64
	}
	rows := []row{
		// Window A
		{"2024-03-01", 121, 302, 47.5, 0.38, 52},
		{"2024-03-02", 119, 298, 48.2, 0.37, 51},
		{"2024-03-03", 123, 305, 49.0, 0.38, 54},
		{"2024-03-04", 118, 296, 47.1, 0.39, 50},
		{"2024-03-05", 122, 301, 48.8, 0.38, 53},
		{"2024-03-06", 120, 299, 48.0, 0.37, 52},
		{"2024-03-07", 121, 303, 47.9, 0.38, 53},
		// Window B
		{"2024-03-08", 117, 262, 46.0, 0.41, 50},
		{"2024-03-09", 116, 258, 45.5, 0.44, 49},
		{"2024-03-10", 118, 255, 45.9, 0.45, 50},
		{"2024-03-11", 115, 260, 46.2, 0.43, 49},
		{"2024-03-12", 117, 265, 45.8, 0.42, 50},
		{"2024-03-13", 116, 259, 46.1, 0.44, 50},
		{"2024-03-14", 118, 257, 45.7, 0.45, 51},
	}

	days := make([]domain.DailyMetrics, len(rows))
	for i, r := range rows {
		days[i] = domain.DailyMetrics{
			Date:                 r.date,
			FindSubmits:          r.submits,
			FindViews:            1000,
			ReportFindClicks:     r.clicks,
			ReportViews:          1000,
			AvgEngagementSeconds: r.engagement,
			BounceRate:           domain.Float64(r.bounce),
			MobileSessions:       domain.Float64(1000),
			MobileRevenue:        domain.Float64(r.revenue),
		}
	}
	return days
}

// FixtureWindows returns the two demo windows.
func FixtureWindows() []WindowSpec {
	return []WindowSpec{
		{
			ExperimentID: FixtureExperimentID,
			Label:        "window-A",
			Start:        "2024-03-01",
			End:          "2024-03-07",
			Baseline:     FixtureBaseline(),
		},
		{
			ExperimentID: FixtureExperimentID,
			Label:        "window-B",
			Start:        "2024-03-08",
			End:          "2024-03-14",
			EndOfWindowB: true,
			Baseline:     FixtureBaseline(),
		},
	}
}

// LoadFixtures populates store with the demo experiment.
func LoadFixtures(ctx context.Context, store storage.DailyMetricsStore) error {
	return store.UpsertBulk(ctx, FixtureExperimentID, FixtureDays())
}

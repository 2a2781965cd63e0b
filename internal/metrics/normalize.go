package metrics

import (
	"sort"

	"ads-guardrail/internal/domain"
)

// perMilleScale converts revenue per session into revenue per thousand sessions.
const perMilleScale = 1000.0

// NormalizeDays derives per-day rates and deltas against the baseline.
// The input is copied and sorted by date ASC; it is never modified.
func NormalizeDays(baseline domain.BaselineMetrics, days []domain.DailyMetrics) []domain.DayEvaluation {
	sorted := SortDays(days)

	evals := make([]domain.DayEvaluation, len(sorted))
	for i, d := range sorted {
		evals[i] = normalizeDay(baseline, d)
	}
	return evals
}

// SortDays returns a copy of days ordered by date ASC.
// ISO dates order correctly as strings.
func SortDays(days []domain.DailyMetrics) []domain.DailyMetrics {
	sorted := make([]domain.DailyMetrics, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}

func normalizeDay(baseline domain.BaselineMetrics, d domain.DailyMetrics) domain.DayEvaluation {
	submitRate := SafeRatio(d.FindSubmits, d.FindViews)
	clickRate := SafeRatio(d.ReportFindClicks, d.ReportViews)

	eval := domain.DayEvaluation{
		DailyMetrics:           d,
		FindSubmitRate:         submitRate,
		FindSubmitDropPct:      SafeDropPct(submitRate, baseline.FindSubmitRate),
		ReportFindClickRate:    clickRate,
		ReportFindClickDropPct: SafeDropPct(clickRate, baseline.ReportClickRate),
		EngagementDeltaSeconds: d.AvgEngagementSeconds - baseline.AvgEngagementSeconds,
	}

	if d.MobileRevenue != nil && d.MobileSessions != nil {
		eval.MobileRevenuePerSession = SafeRatio(*d.MobileRevenue, *d.MobileSessions)
	}
	if eval.MobileRevenuePerSession != nil {
		eval.MobileRevenuePerMille = domain.Float64(*eval.MobileRevenuePerSession * perMilleScale)
	}

	if baseline.BounceRate != nil && d.BounceRate != nil {
		eval.BounceRiseAbsolute = domain.Float64(*d.BounceRate - *baseline.BounceRate)
	}

	return eval
}

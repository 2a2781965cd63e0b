package metrics

import "ads-guardrail/internal/domain"

// Summarize computes window averages over evaluated days, ignoring nil values,
// and the primary lift against the baseline mobile revenue per session.
func Summarize(baseline domain.BaselineMetrics, days []domain.DayEvaluation) domain.WindowSummary {
	n := len(days)
	submitRates := make([]*float64, n)
	clickRates := make([]*float64, n)
	engagement := make([]*float64, n)
	bounce := make([]*float64, n)
	rps := make([]*float64, n)
	perMille := make([]*float64, n)

	for i, d := range days {
		submitRates[i] = d.FindSubmitRate
		clickRates[i] = d.ReportFindClickRate
		engagement[i] = domain.Float64(d.AvgEngagementSeconds)
		bounce[i] = d.BounceRate
		rps[i] = d.MobileRevenuePerSession
		perMille[i] = d.MobileRevenuePerMille
	}

	summary := domain.WindowSummary{
		Days:                       n,
		AvgFindSubmitRate:          Average(submitRates),
		AvgReportFindClickRate:     Average(clickRates),
		AvgEngagementSeconds:       Average(engagement),
		AvgBounceRate:              Average(bounce),
		AvgMobileRevenuePerSession: Average(rps),
		AvgMobileRevenuePerMille:   Average(perMille),
	}

	if baseline.MobileRevenuePerSession != nil && summary.AvgMobileRevenuePerSession != nil {
		summary.PrimaryLiftPct = PrimaryLiftPct(*summary.AvgMobileRevenuePerSession, *baseline.MobileRevenuePerSession)
	}

	return summary
}

// PrimaryLiftPct returns (current - baseline) / baseline, or nil when the
// baseline is not positive.
func PrimaryLiftPct(current, baseline float64) *float64 {
	if !isFinite(current) || !isFinite(baseline) || baseline <= 0 {
		return nil
	}
	lift := (current - baseline) / baseline
	return &lift
}

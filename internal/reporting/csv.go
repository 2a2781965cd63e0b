package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ads-guardrail/internal/domain"
)

// RenderDaysCSV renders the per-day evaluations of a report as CSV string.
// Absent values are empty cells.
func RenderDaysCSV(r *domain.GuardrailReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("date,find_submits,find_views,report_find_clicks,report_views,")
	sb.WriteString("find_submit_rate,find_submit_drop_pct,report_find_click_rate,report_find_click_drop_pct,")
	sb.WriteString("avg_engagement_seconds,engagement_delta_seconds,bounce_rate,bounce_rise_absolute,")
	sb.WriteString("mobile_sessions,mobile_revenue,mobile_revenue_per_session,mobile_revenue_per_mille,")
	sb.WriteString("user_facing_flow_breakage\n")

	// Rows
	for _, d := range r.Days {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%t\n",
			d.Date,
			num(d.FindSubmits),
			num(d.FindViews),
			num(d.ReportFindClicks),
			num(d.ReportViews),
			optNum(d.FindSubmitRate),
			optNum(d.FindSubmitDropPct),
			optNum(d.ReportFindClickRate),
			optNum(d.ReportFindClickDropPct),
			num(d.AvgEngagementSeconds),
			num(d.EngagementDeltaSeconds),
			optNum(d.BounceRate),
			optNum(d.BounceRiseAbsolute),
			optNum(d.MobileSessions),
			optNum(d.MobileRevenue),
			optNum(d.MobileRevenuePerSession),
			optNum(d.MobileRevenuePerMille),
			d.UserFacingFlowBreakage,
		))
	}

	return sb.String()
}

// RenderHistoryCSV renders history rows as CSV string. Reason codes are ';'-separated.
func RenderHistoryCSV(rows []HistoryRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{"evaluated_at", "run_id", "window_label", "end_of_window_b", "action", "reason_codes", "warnings", "fingerprint"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.EvaluatedAt.UTC().Format(time.RFC3339),
			r.RunID,
			r.WindowLabel,
			strconv.FormatBool(r.EndOfWindowB),
			string(r.Action),
			strings.Join(codeStrings(r.ReasonCodes), ";"),
			strconv.Itoa(r.WarningsCount),
			r.Fingerprint,
		})
	}
	w.Flush()

	return sb.String()
}

func codeStrings(codes []domain.ReasonCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

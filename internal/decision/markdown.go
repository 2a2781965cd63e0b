package decision

import (
	"fmt"
	"strings"

	"ads-guardrail/internal/domain"
)

// RenderMarkdown renders a guardrail report as a Markdown summary.
func RenderMarkdown(r *domain.GuardrailReport) string {
	var sb strings.Builder

	sb.WriteString("# Guardrail Report\n\n")
	if r.WindowLabel != "" {
		sb.WriteString(fmt.Sprintf("Window: %s\n\n", r.WindowLabel))
	}
	sb.WriteString(fmt.Sprintf("End of window B: %t\n\n", r.EndOfWindowB))
	sb.WriteString(fmt.Sprintf("## Action: %s\n\n", r.Action))

	writeReasons(&sb, "Hard Reasons", r.HardReasons)
	writeReasons(&sb, "Soft Reasons", r.SoftReasons)
	writeReasons(&sb, "No-Lift Reasons", r.NoLiftReasons)

	// Window summary
	s := r.Summary
	sb.WriteString("## Window Summary\n\n")
	sb.WriteString("| Metric | Window | Baseline |\n")
	sb.WriteString("|--------|--------|----------|\n")
	sb.WriteString(fmt.Sprintf("| Days | %d | - |\n", s.Days))
	sb.WriteString(fmt.Sprintf("| Find submit rate | %s | %.4f |\n", fmtOpt(s.AvgFindSubmitRate, "%.4f"), r.Baseline.FindSubmitRate))
	sb.WriteString(fmt.Sprintf("| Report find click rate | %s | %.4f |\n", fmtOpt(s.AvgReportFindClickRate, "%.4f"), r.Baseline.ReportClickRate))
	sb.WriteString(fmt.Sprintf("| Engagement (s) | %s | %.1f |\n", fmtOpt(s.AvgEngagementSeconds, "%.1f"), r.Baseline.AvgEngagementSeconds))
	sb.WriteString(fmt.Sprintf("| Bounce rate | %s | %s |\n", fmtOpt(s.AvgBounceRate, "%.4f"), fmtOpt(r.Baseline.BounceRate, "%.4f")))
	sb.WriteString(fmt.Sprintf("| Mobile revenue / session | %s | %s |\n", fmtOpt(s.AvgMobileRevenuePerSession, "%.4f"), fmtOpt(r.Baseline.MobileRevenuePerSession, "%.4f")))
	sb.WriteString(fmt.Sprintf("| Mobile revenue / 1000 sessions | %s | - |\n", fmtOpt(s.AvgMobileRevenuePerMille, "%.2f")))
	sb.WriteString(fmt.Sprintf("| Primary lift | %s | - |\n", fmtOptPct(s.PrimaryLiftPct)))
	sb.WriteString("\n")

	// Per-day table
	sb.WriteString("## Days\n\n")
	if len(r.Days) > 0 {
		sb.WriteString("| Date | Submit rate | Submit drop | Click rate | Click drop | Engagement Δ (s) | Bounce rise | RPM | Breakage |\n")
		sb.WriteString("|------|-------------|-------------|------------|------------|------------------|-------------|-----|----------|\n")
		for _, d := range r.Days {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.1f | %s | %s | %t |\n",
				d.Date,
				fmtOpt(d.FindSubmitRate, "%.4f"), fmtOptPct(d.FindSubmitDropPct),
				fmtOpt(d.ReportFindClickRate, "%.4f"), fmtOptPct(d.ReportFindClickDropPct),
				d.EngagementDeltaSeconds, fmtOpt(d.BounceRiseAbsolute, "%+.4f"),
				fmtOpt(d.MobileRevenuePerMille, "%.2f"), d.UserFacingFlowBreakage))
		}
	} else {
		sb.WriteString("No days evaluated.\n")
	}
	sb.WriteString("\n")

	if len(r.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeReasons(sb *strings.Builder, title string, reasons []domain.GuardrailReason) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	if len(reasons) == 0 {
		sb.WriteString("None.\n\n")
		return
	}
	for _, r := range reasons {
		sb.WriteString(fmt.Sprintf("- `%s`: %s\n", r.Code, r.Message))
	}
	sb.WriteString("\n")
}

func fmtOpt(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func fmtOptPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

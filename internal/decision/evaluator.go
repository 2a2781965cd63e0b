package decision

import (
	"fmt"
	"strings"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/metrics"
)

// Evaluator classifies an experiment window into a guardrail action.
// It holds no state; one Evaluator may be shared across goroutines.
type Evaluator struct{}

// NewEvaluator creates a new guardrail evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces the guardrail report for input.
// Hard reasons win over soft, soft over no-lift, and no reasons means hold.
// Every tier is evaluated regardless of the others so the report lists all findings.
func (e *Evaluator) Evaluate(input Input) *domain.GuardrailReport {
	days := metrics.NormalizeDays(input.Baseline, input.Days)
	summary := metrics.Summarize(input.Baseline, days)

	hard := e.hardReasons(input.Config, days)
	soft := e.softReasons(input.Baseline, input.Config, days)
	noLift := []domain.GuardrailReason{}
	if input.EndOfWindowB {
		noLift = e.noLiftReasons(input.Baseline, input.Config, summary)
	}

	return &domain.GuardrailReport{
		Baseline:      input.Baseline,
		Config:        input.Config,
		WindowLabel:   input.WindowLabel,
		EndOfWindowB:  input.EndOfWindowB,
		Action:        chooseAction(hard, soft, noLift),
		Summary:       summary,
		Days:          days,
		HardReasons:   hard,
		SoftReasons:   soft,
		NoLiftReasons: noLift,
		Warnings:      coverageWarnings(input.Baseline),
	}
}

func chooseAction(hard, soft, noLift []domain.GuardrailReason) domain.Action {
	switch {
	case len(hard) > 0:
		return domain.ActionHardRollback
	case len(soft) > 0:
		return domain.ActionSoftRollback
	case len(noLift) > 0:
		return domain.ActionNoLiftRollback
	default:
		return domain.ActionHold
	}
}

// hardReasons evaluates the three hard triggers independently.
func (e *Evaluator) hardReasons(cfg domain.GuardrailConfig, days []domain.DayEvaluation) []domain.GuardrailReason {
	reasons := []domain.GuardrailReason{}

	submitStreaks := metrics.LongStreaks(metrics.CollectStreaks(days, func(d domain.DayEvaluation) bool {
		return d.FindSubmitDropPct != nil && *d.FindSubmitDropPct >= cfg.HardFindSubmitDropPct
	}), cfg.RequiredConsecutiveDays)
	if len(submitStreaks) > 0 {
		reasons = append(reasons, domain.GuardrailReason{
			Code: domain.ReasonHardFindSubmitDrop,
			Message: fmt.Sprintf("find submit rate dropped >= %s vs baseline for %d+ consecutive days: %s",
				formatPct(cfg.HardFindSubmitDropPct), cfg.RequiredConsecutiveDays, formatStreaks(submitStreaks)),
			Streaks: submitStreaks,
		})
	}

	engagementStreaks := metrics.LongStreaks(metrics.CollectStreaks(days, func(d domain.DayEvaluation) bool {
		return d.AvgEngagementSeconds < cfg.HardEngagementFloorSeconds
	}), cfg.RequiredConsecutiveDays)
	if len(engagementStreaks) > 0 {
		reasons = append(reasons, domain.GuardrailReason{
			Code: domain.ReasonHardEngagementFloor,
			Message: fmt.Sprintf("average engagement below %.1fs for %d+ consecutive days: %s",
				cfg.HardEngagementFloorSeconds, cfg.RequiredConsecutiveDays, formatStreaks(engagementStreaks)),
			Streaks: engagementStreaks,
		})
	}

	var broken []string
	for _, d := range days {
		if d.UserFacingFlowBreakage {
			broken = append(broken, d.Date)
		}
	}
	if len(broken) > 0 {
		reasons = append(reasons, domain.GuardrailReason{
			Code:    domain.ReasonHardFlowBreakage,
			Message: fmt.Sprintf("user-facing flow breakage observed on %s", strings.Join(broken, ", ")),
			Dates:   broken,
		})
	}

	return reasons
}

// softReasons evaluates the soft triggers. The click band is checked as
// configured; it is not filtered against days that also fired a hard trigger.
func (e *Evaluator) softReasons(baseline domain.BaselineMetrics, cfg domain.GuardrailConfig, days []domain.DayEvaluation) []domain.GuardrailReason {
	reasons := []domain.GuardrailReason{}

	var clickDates []string
	for _, d := range days {
		drop := d.ReportFindClickDropPct
		if drop != nil && *drop >= cfg.SoftReportFindClickDropMinPct && *drop <= cfg.SoftReportFindClickDropMaxPct {
			clickDates = append(clickDates, d.Date)
		}
	}
	if len(clickDates) > 0 {
		reasons = append(reasons, domain.GuardrailReason{
			Code: domain.ReasonSoftReportFindClickDrop,
			Message: fmt.Sprintf("report find click rate dropped %s-%s vs baseline on %s",
				formatPct(cfg.SoftReportFindClickDropMinPct), formatPct(cfg.SoftReportFindClickDropMaxPct),
				strings.Join(clickDates, ", ")),
			Dates: clickDates,
		})
	}

	if baseline.BounceRate != nil {
		var bounceDates []string
		for _, d := range days {
			if d.BounceRiseAbsolute != nil && *d.BounceRiseAbsolute >= cfg.SoftBounceRiseAbsolute {
				bounceDates = append(bounceDates, d.Date)
			}
		}
		if len(bounceDates) > 0 {
			reasons = append(reasons, domain.GuardrailReason{
				Code: domain.ReasonSoftBounceRise,
				Message: fmt.Sprintf("bounce rate rose >= %s points vs baseline on %s",
					formatPoints(cfg.SoftBounceRiseAbsolute), strings.Join(bounceDates, ", ")),
				Dates: bounceDates,
			})
		}
	}

	return reasons
}

// noLiftReasons fires only when the primary lift is at or below the floor
// AND at least one core guardrail average is worse than baseline.
// A missing primary lift skips the check.
func (e *Evaluator) noLiftReasons(baseline domain.BaselineMetrics, cfg domain.GuardrailConfig, summary domain.WindowSummary) []domain.GuardrailReason {
	reasons := []domain.GuardrailReason{}

	if summary.PrimaryLiftPct == nil {
		return reasons
	}
	lift := *summary.PrimaryLiftPct
	if lift > cfg.NoLiftMinPrimaryLiftPct {
		return reasons
	}

	worsened := worsenedGuardrails(baseline, summary)
	if len(worsened) == 0 {
		return reasons
	}

	reasons = append(reasons, domain.GuardrailReason{
		Code: domain.ReasonNoLiftGuardrailWorsened,
		Message: fmt.Sprintf("primary lift %s is at or below the %s floor and guardrails worsened: %s",
			formatPct(lift), formatPct(cfg.NoLiftMinPrimaryLiftPct), strings.Join(worsened, "; ")),
	})
	return reasons
}

// worsenedGuardrails lists the window averages that are worse than baseline:
// lower for rates and engagement, higher for bounce.
func worsenedGuardrails(baseline domain.BaselineMetrics, s domain.WindowSummary) []string {
	var worse []string

	if s.AvgFindSubmitRate != nil && *s.AvgFindSubmitRate < baseline.FindSubmitRate {
		worse = append(worse, fmt.Sprintf("find submit rate %.4f < baseline %.4f", *s.AvgFindSubmitRate, baseline.FindSubmitRate))
	}
	if s.AvgReportFindClickRate != nil && *s.AvgReportFindClickRate < baseline.ReportClickRate {
		worse = append(worse, fmt.Sprintf("report find click rate %.4f < baseline %.4f", *s.AvgReportFindClickRate, baseline.ReportClickRate))
	}
	if s.AvgEngagementSeconds != nil && *s.AvgEngagementSeconds < baseline.AvgEngagementSeconds {
		worse = append(worse, fmt.Sprintf("engagement %.1fs < baseline %.1fs", *s.AvgEngagementSeconds, baseline.AvgEngagementSeconds))
	}
	if baseline.BounceRate != nil && s.AvgBounceRate != nil && *s.AvgBounceRate > *baseline.BounceRate {
		worse = append(worse, fmt.Sprintf("bounce rate %.4f > baseline %.4f", *s.AvgBounceRate, *baseline.BounceRate))
	}

	return worse
}

// coverageWarnings documents guardrails disabled by missing baseline fields.
func coverageWarnings(baseline domain.BaselineMetrics) []string {
	warnings := []string{}
	if baseline.MobileRevenuePerSession == nil || *baseline.MobileRevenuePerSession <= 0 {
		warnings = append(warnings, "baseline mobileRevenuePerSession is not set; no-lift evaluation is disabled")
	}
	if baseline.BounceRate == nil {
		warnings = append(warnings, "baseline bounceRate is not set; soft bounce-rise trigger is disabled")
	}
	return warnings
}

func formatStreaks(streaks []domain.Streak) string {
	parts := make([]string, len(streaks))
	for i, s := range streaks {
		parts[i] = fmt.Sprintf("%s..%s (%d days)", s.StartDate, s.EndDate, s.Length)
	}
	return strings.Join(parts, ", ")
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func formatPoints(v float64) string {
	return fmt.Sprintf("%.1f", v*100)
}

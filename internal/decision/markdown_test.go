package decision

import (
	"strings"
	"testing"

	"ads-guardrail/internal/domain"
)

func TestRenderMarkdown(t *testing.T) {
	d := healthyDay("2024-03-01")
	d.UserFacingFlowBreakage = true
	input := testInput(d)
	input.Baseline.BounceRate = nil

	md := RenderMarkdown(NewEvaluator().Evaluate(input))

	for _, want := range []string{
		"# Guardrail Report",
		"Window: test-window",
		"## Action: hard_rollback",
		"`hard_flow_breakage`",
		"### Soft Reasons\n\nNone.",
		"| 2024-03-01 |",
		"## Warnings",
		"bounceRate is not set",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_OptionalValues(t *testing.T) {
	d := healthyDay("2024-03-01")
	d.FindViews = 0
	d.MobileSessions = nil
	d.MobileRevenue = nil

	report := NewEvaluator().Evaluate(testInput(d))
	md := RenderMarkdown(report)

	if report.Days[0].FindSubmitRate != nil {
		t.Fatal("zero denominator must yield a nil rate")
	}
	if !strings.Contains(md, "n/a") {
		t.Error("absent values should render as n/a")
	}
	if strings.Contains(md, "NaN") || strings.Contains(md, "Inf") {
		t.Error("markdown must not contain non-finite numbers")
	}
	if report.Action != domain.ActionHold {
		t.Errorf("expected hold, got %s", report.Action)
	}
}

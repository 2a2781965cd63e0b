package decision

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"ads-guardrail/internal/domain"
)

func TestBuilder_MergesConfigOverDefaults(t *testing.T) {
	required := 3
	doc := &Document{
		WindowLabel: "window-B",
		Baseline:    testBaseline(),
		Config:      domain.GuardrailConfigOverride{RequiredConsecutiveDays: &required},
		Days:        []domain.DailyMetrics{healthyDay("2024-03-01")},
	}

	input, err := NewBuilder(domain.DefaultGuardrailConfig()).Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	defaults := domain.DefaultGuardrailConfig()
	if input.Config.RequiredConsecutiveDays != 3 {
		t.Errorf("RequiredConsecutiveDays = %d, want 3", input.Config.RequiredConsecutiveDays)
	}
	if input.Config.HardFindSubmitDropPct != defaults.HardFindSubmitDropPct {
		t.Errorf("unset fields must keep defaults, got %v", input.Config.HardFindSubmitDropPct)
	}
	if input.WindowLabel != "window-B" {
		t.Errorf("WindowLabel = %q", input.WindowLabel)
	}
}

func TestBuilder_BaselineOverride(t *testing.T) {
	doc := &Document{
		Baseline: testBaseline(),
		Days:     []domain.DailyMetrics{healthyDay("2024-03-01")},
	}

	b := NewBuilder(domain.DefaultGuardrailConfig()).
		WithBaselineOverride(domain.BaselineOverride{FindSubmitRate: fptr(0.2)})

	input, err := b.Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if input.Baseline.FindSubmitRate != 0.2 {
		t.Errorf("FindSubmitRate = %v, want 0.2", input.Baseline.FindSubmitRate)
	}
	if input.Baseline.ReportClickRate != 0.30 {
		t.Errorf("ReportClickRate = %v, want unchanged 0.30", input.Baseline.ReportClickRate)
	}
	if doc.Baseline.FindSubmitRate != 0.12 {
		t.Error("override must not modify the document")
	}
}

func TestBuilder_RejectsInvalidDocument(t *testing.T) {
	b := NewBuilder(domain.DefaultGuardrailConfig())

	if _, err := b.Build(nil); !errors.Is(err, ErrNilInput) {
		t.Errorf("expected ErrNilInput, got %v", err)
	}
	if _, err := b.Build(&Document{Baseline: testBaseline()}); !errors.Is(err, ErrNoDays) {
		t.Errorf("expected ErrNoDays, got %v", err)
	}
	if _, err := b.BuildWindow(testBaseline(), []domain.DailyMetrics{{Date: "bad"}}, "w", false); !errors.Is(err, ErrMalformedDate) {
		t.Errorf("expected ErrMalformedDate, got %v", err)
	}
}

func TestParseDocument(t *testing.T) {
	raw := `{
		"windowLabel": "window-A",
		"endOfWindowB": true,
		"baseline": {"findSubmitRate": 0.12, "reportClickRate": 0.3, "avgEngagementSeconds": 45, "bounceRate": null, "mobileRevenuePerSession": 0.05},
		"config": {"requiredConsecutiveDays": 3},
		"days": [{"date": "2024-03-01", "findSubmits": 10, "findViews": 100, "reportFindClicks": 30, "reportViews": 100, "avgEngagementSeconds": 40}]
	}`

	doc, err := ParseDocument(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if !doc.EndOfWindowB || doc.WindowLabel != "window-A" {
		t.Errorf("unexpected header: %+v", doc)
	}
	if doc.Baseline.BounceRate != nil {
		t.Error("null bounceRate should decode as nil")
	}
	if doc.Config.RequiredConsecutiveDays == nil || *doc.Config.RequiredConsecutiveDays != 3 {
		t.Error("config override not decoded")
	}
	if len(doc.Days) != 1 || doc.Days[0].MobileRevenue != nil {
		t.Errorf("unexpected days: %+v", doc.Days)
	}
}

func TestParseDocument_Errors(t *testing.T) {
	if _, err := ParseDocument(strings.NewReader("")); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := ParseDocument(strings.NewReader(`{"days": [], "thresholds": {}}`)); err == nil {
		t.Error("expected error for unknown field")
	}
	if _, err := ParseDocument(strings.NewReader(`{"days": [`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestParseBaselineOverride(t *testing.T) {
	o, err := ParseBaselineOverride(strings.NewReader(`{"bounceRate": 0.35}`))
	if err != nil {
		t.Fatalf("ParseBaselineOverride: %v", err)
	}
	merged := o.Apply(testBaseline())
	if merged.BounceRate == nil || *merged.BounceRate != 0.35 {
		t.Errorf("bounceRate = %v, want 0.35", merged.BounceRate)
	}
	if merged.FindSubmitRate != 0.12 {
		t.Errorf("FindSubmitRate = %v, want 0.12", merged.FindSubmitRate)
	}
}

func TestTemplate_RoundTripsAndValidates(t *testing.T) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(Template()); err != nil {
		t.Fatalf("encode template: %v", err)
	}

	doc, err := ParseDocument(&buf)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	input, err := NewBuilder(domain.DefaultGuardrailConfig()).Build(doc)
	if err != nil {
		t.Fatalf("template does not validate: %v", err)
	}
	if input.Config != domain.DefaultGuardrailConfig() {
		t.Errorf("template config = %+v, want defaults", input.Config)
	}
}

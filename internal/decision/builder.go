package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ads-guardrail/internal/domain"
)

// ErrEmptyDocument is returned when an input document has no content.
var ErrEmptyDocument = errors.New("empty input document")

// Document is the on-disk input shape consumed by the CLI and HTTP API.
// Config is partial: unset fields fall back to the builder defaults.
type Document struct {
	WindowLabel  string                         `json:"windowLabel"`
	EndOfWindowB bool                           `json:"endOfWindowB"`
	Baseline     domain.BaselineMetrics         `json:"baseline"`
	Config       domain.GuardrailConfigOverride `json:"config"`
	Days         []domain.DailyMetrics          `json:"days"`
}

// Builder turns documents and stored windows into validated Inputs.
type Builder struct {
	defaults         domain.GuardrailConfig
	baselineOverride *domain.BaselineOverride
}

// NewBuilder creates a builder whose policy starts from defaults.
func NewBuilder(defaults domain.GuardrailConfig) *Builder {
	return &Builder{defaults: defaults}
}

// WithBaselineOverride applies o on top of every baseline the builder sees.
func (b *Builder) WithBaselineOverride(o domain.BaselineOverride) *Builder {
	b.baselineOverride = &o
	return b
}

// Build merges defaults, document config and baseline overrides, then validates.
func (b *Builder) Build(doc *Document) (*Input, error) {
	if doc == nil {
		return nil, ErrNilInput
	}
	input := &Input{
		Baseline:     b.baseline(doc.Baseline),
		Config:       doc.Config.Apply(b.defaults),
		Days:         doc.Days,
		EndOfWindowB: doc.EndOfWindowB,
		WindowLabel:  doc.WindowLabel,
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}

// BuildWindow creates a validated Input from days loaded out of storage.
func (b *Builder) BuildWindow(baseline domain.BaselineMetrics, days []domain.DailyMetrics, label string, endOfWindowB bool) (*Input, error) {
	input := &Input{
		Baseline:     b.baseline(baseline),
		Config:       b.defaults,
		Days:         days,
		EndOfWindowB: endOfWindowB,
		WindowLabel:  label,
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}

func (b *Builder) baseline(base domain.BaselineMetrics) domain.BaselineMetrics {
	if b.baselineOverride == nil {
		return base
	}
	return b.baselineOverride.Apply(base)
}

// ParseDocument decodes a JSON input document. Unknown fields are rejected
// so misspelled thresholds do not silently fall back to defaults.
func ParseDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := decodeStrict(r, &doc); err != nil {
		return nil, fmt.Errorf("decode input document: %w", err)
	}
	return &doc, nil
}

// ParseBaselineOverride decodes a partial baseline JSON object.
func ParseBaselineOverride(r io.Reader) (*domain.BaselineOverride, error) {
	var o domain.BaselineOverride
	if err := decodeStrict(r, &o); err != nil {
		return nil, fmt.Errorf("decode baseline override: %w", err)
	}
	return &o, nil
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyDocument
		}
		return err
	}
	return nil
}

// Template returns a skeleton document with the default policy and one example day.
func Template() *Document {
	cfg := domain.DefaultGuardrailConfig()
	return &Document{
		WindowLabel:  "window-A day 1",
		EndOfWindowB: false,
		Baseline: domain.BaselineMetrics{
			FindSubmitRate:          0.12,
			ReportClickRate:         0.30,
			AvgEngagementSeconds:    45,
			BounceRate:              domain.Float64(0.40),
			MobileRevenuePerSession: domain.Float64(0.05),
		},
		Config: domain.GuardrailConfigOverride{
			HardFindSubmitDropPct:         &cfg.HardFindSubmitDropPct,
			HardEngagementFloorSeconds:    &cfg.HardEngagementFloorSeconds,
			RequiredConsecutiveDays:       &cfg.RequiredConsecutiveDays,
			SoftReportFindClickDropMinPct: &cfg.SoftReportFindClickDropMinPct,
			SoftReportFindClickDropMaxPct: &cfg.SoftReportFindClickDropMaxPct,
			SoftBounceRiseAbsolute:        &cfg.SoftBounceRiseAbsolute,
			NoLiftMinPrimaryLiftPct:       &cfg.NoLiftMinPrimaryLiftPct,
		},
		Days: []domain.DailyMetrics{{
			Date:                 "2024-01-01",
			FindSubmits:          120,
			FindViews:            1000,
			ReportFindClicks:     300,
			ReportViews:          1000,
			AvgEngagementSeconds: 45,
			BounceRate:           domain.Float64(0.40),
			MobileSessions:       domain.Float64(400),
			MobileRevenue:        domain.Float64(20),
		}},
	}
}

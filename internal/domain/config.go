package domain

// GuardrailConfig holds the policy thresholds used to classify a window.
// All percentages are fractions (0.2 = 20%).
type GuardrailConfig struct {
	// Submission-rate drop at or above which a day counts toward a hard streak.
	HardFindSubmitDropPct float64 `json:"hardFindSubmitDropPct" yaml:"hard_find_submit_drop_pct" validate:"gt=0,lte=1"`
	// Engagement below this many seconds counts toward a hard streak.
	HardEngagementFloorSeconds float64 `json:"hardEngagementFloorSeconds" yaml:"hard_engagement_floor_seconds" validate:"gte=0"`
	// Minimum streak length for the two streak-based hard triggers.
	RequiredConsecutiveDays int `json:"requiredConsecutiveDays" yaml:"required_consecutive_days" validate:"gte=1"`

	// Inclusive click-rate drop band for the soft trigger.
	// Expected to satisfy Min <= Max <= HardFindSubmitDropPct.
	SoftReportFindClickDropMinPct float64 `json:"softReportFindClickDropMinPct" yaml:"soft_report_find_click_drop_min_pct" validate:"gte=0,lte=1,ltefield=SoftReportFindClickDropMaxPct"`
	SoftReportFindClickDropMaxPct float64 `json:"softReportFindClickDropMaxPct" yaml:"soft_report_find_click_drop_max_pct" validate:"gte=0,lte=1,ltefield=HardFindSubmitDropPct"`
	SoftBounceRiseAbsolute        float64 `json:"softBounceRiseAbsolute" yaml:"soft_bounce_rise_absolute" validate:"gt=0,lte=1"`

	// Window-average primary lift at or below which the no-lift check may fire.
	NoLiftMinPrimaryLiftPct float64 `json:"noLiftMinPrimaryLiftPct" yaml:"no_lift_min_primary_lift_pct"`
}

// DefaultGuardrailConfig returns the standard guardrail policy.
func DefaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{
		HardFindSubmitDropPct:         0.20,
		HardEngagementFloorSeconds:    20,
		RequiredConsecutiveDays:       2,
		SoftReportFindClickDropMinPct: 0.10,
		SoftReportFindClickDropMaxPct: 0.20,
		SoftBounceRiseAbsolute:        0.05,
		NoLiftMinPrimaryLiftPct:       0.02,
	}
}

// GuardrailConfigOverride holds a partial policy. Nil fields keep the base value.
type GuardrailConfigOverride struct {
	HardFindSubmitDropPct         *float64 `json:"hardFindSubmitDropPct,omitempty" yaml:"hard_find_submit_drop_pct,omitempty"`
	HardEngagementFloorSeconds    *float64 `json:"hardEngagementFloorSeconds,omitempty" yaml:"hard_engagement_floor_seconds,omitempty"`
	RequiredConsecutiveDays       *int     `json:"requiredConsecutiveDays,omitempty" yaml:"required_consecutive_days,omitempty"`
	SoftReportFindClickDropMinPct *float64 `json:"softReportFindClickDropMinPct,omitempty" yaml:"soft_report_find_click_drop_min_pct,omitempty"`
	SoftReportFindClickDropMaxPct *float64 `json:"softReportFindClickDropMaxPct,omitempty" yaml:"soft_report_find_click_drop_max_pct,omitempty"`
	SoftBounceRiseAbsolute        *float64 `json:"softBounceRiseAbsolute,omitempty" yaml:"soft_bounce_rise_absolute,omitempty"`
	NoLiftMinPrimaryLiftPct       *float64 `json:"noLiftMinPrimaryLiftPct,omitempty" yaml:"no_lift_min_primary_lift_pct,omitempty"`
}

// Apply returns a copy of c with every non-nil override field replacing the original.
func (o GuardrailConfigOverride) Apply(c GuardrailConfig) GuardrailConfig {
	if o.HardFindSubmitDropPct != nil {
		c.HardFindSubmitDropPct = *o.HardFindSubmitDropPct
	}
	if o.HardEngagementFloorSeconds != nil {
		c.HardEngagementFloorSeconds = *o.HardEngagementFloorSeconds
	}
	if o.RequiredConsecutiveDays != nil {
		c.RequiredConsecutiveDays = *o.RequiredConsecutiveDays
	}
	if o.SoftReportFindClickDropMinPct != nil {
		c.SoftReportFindClickDropMinPct = *o.SoftReportFindClickDropMinPct
	}
	if o.SoftReportFindClickDropMaxPct != nil {
		c.SoftReportFindClickDropMaxPct = *o.SoftReportFindClickDropMaxPct
	}
	if o.SoftBounceRiseAbsolute != nil {
		c.SoftBounceRiseAbsolute = *o.SoftBounceRiseAbsolute
	}
	if o.NoLiftMinPrimaryLiftPct != nil {
		c.NoLiftMinPrimaryLiftPct = *o.NoLiftMinPrimaryLiftPct
	}
	return c
}

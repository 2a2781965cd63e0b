package domain

// BaselineMetrics is the pre-experiment reference point every day is compared against.
type BaselineMetrics struct {
	FindSubmitRate          float64  `json:"findSubmitRate" yaml:"find_submit_rate" validate:"gte=0,lte=1"`
	ReportClickRate         float64  `json:"reportClickRate" yaml:"report_click_rate" validate:"gte=0,lte=1"`
	AvgEngagementSeconds    float64  `json:"avgEngagementSeconds" yaml:"avg_engagement_seconds" validate:"gte=0"`
	BounceRate              *float64 `json:"bounceRate" yaml:"bounce_rate" validate:"omitempty,gte=0,lte=1"`
	MobileRevenuePerSession *float64 `json:"mobileRevenuePerSession" yaml:"mobile_revenue_per_session" validate:"omitempty,gte=0"`
}

// BaselineOverride holds a partial baseline. Nil fields leave the target unchanged.
type BaselineOverride struct {
	FindSubmitRate          *float64 `json:"findSubmitRate,omitempty" yaml:"find_submit_rate,omitempty"`
	ReportClickRate         *float64 `json:"reportClickRate,omitempty" yaml:"report_click_rate,omitempty"`
	AvgEngagementSeconds    *float64 `json:"avgEngagementSeconds,omitempty" yaml:"avg_engagement_seconds,omitempty"`
	BounceRate              *float64 `json:"bounceRate,omitempty" yaml:"bounce_rate,omitempty"`
	MobileRevenuePerSession *float64 `json:"mobileRevenuePerSession,omitempty" yaml:"mobile_revenue_per_session,omitempty"`
}

// Apply returns a copy of b with every non-nil override field replacing the original.
func (o BaselineOverride) Apply(b BaselineMetrics) BaselineMetrics {
	if o.FindSubmitRate != nil {
		b.FindSubmitRate = *o.FindSubmitRate
	}
	if o.ReportClickRate != nil {
		b.ReportClickRate = *o.ReportClickRate
	}
	if o.AvgEngagementSeconds != nil {
		b.AvgEngagementSeconds = *o.AvgEngagementSeconds
	}
	if o.BounceRate != nil {
		b.BounceRate = Float64(*o.BounceRate)
	}
	if o.MobileRevenuePerSession != nil {
		b.MobileRevenuePerSession = Float64(*o.MobileRevenuePerSession)
	}
	return b
}

// Float64 returns a pointer to a copy of v.
func Float64(v float64) *float64 {
	return &v
}

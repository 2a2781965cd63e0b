package domain

// DateLayout is the ISO calendar date format used as the day ordering key.
const DateLayout = "2006-01-02"

// DailyMetrics holds one calendar day of raw, already-aggregated counters.
type DailyMetrics struct {
	Date string `json:"date" yaml:"date" validate:"required"`

	FindSubmits      float64 `json:"findSubmits" yaml:"find_submits" validate:"gte=0"`
	FindViews        float64 `json:"findViews" yaml:"find_views" validate:"gte=0"`
	ReportFindClicks float64 `json:"reportFindClicks" yaml:"report_find_clicks" validate:"gte=0"`
	ReportViews      float64 `json:"reportViews" yaml:"report_views" validate:"gte=0"`

	AvgEngagementSeconds float64 `json:"avgEngagementSeconds" yaml:"avg_engagement_seconds" validate:"gte=0"`

	BounceRate     *float64 `json:"bounceRate,omitempty" yaml:"bounce_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
	MobileSessions *float64 `json:"mobileSessions,omitempty" yaml:"mobile_sessions,omitempty" validate:"omitempty,gte=0"`
	MobileRevenue  *float64 `json:"mobileRevenue,omitempty" yaml:"mobile_revenue,omitempty"`

	// UserFacingFlowBreakage is set when someone manually observed a broken flow that day.
	UserFacingFlowBreakage bool `json:"userFacingFlowBreakage,omitempty" yaml:"user_facing_flow_breakage,omitempty"`
}

// DayEvaluation is a DailyMetrics record with its derived per-day values.
// Derived fields are nil when the inputs needed to compute them are missing.
type DayEvaluation struct {
	DailyMetrics

	FindSubmitRate    *float64 `json:"findSubmitRate"`
	FindSubmitDropPct *float64 `json:"findSubmitDropPct"`

	ReportFindClickRate    *float64 `json:"reportFindClickRate"`
	ReportFindClickDropPct *float64 `json:"reportFindClickDropPct"`

	EngagementDeltaSeconds float64 `json:"engagementDeltaSeconds"`

	MobileRevenuePerSession *float64 `json:"mobileRevenuePerSession"`
	MobileRevenuePerMille   *float64 `json:"mobileRevenuePerMille"`

	BounceRiseAbsolute *float64 `json:"bounceRiseAbsolute"`
}

// WindowSummary holds window-level averages over all evaluated days.
type WindowSummary struct {
	Days int `json:"days"`

	AvgFindSubmitRate          *float64 `json:"avgFindSubmitRate"`
	AvgReportFindClickRate     *float64 `json:"avgReportFindClickRate"`
	AvgEngagementSeconds       *float64 `json:"avgEngagementSeconds"`
	AvgBounceRate              *float64 `json:"avgBounceRate"`
	AvgMobileRevenuePerSession *float64 `json:"avgMobileRevenuePerSession"`
	AvgMobileRevenuePerMille   *float64 `json:"avgMobileRevenuePerMille"`

	// PrimaryLiftPct compares AvgMobileRevenuePerSession with the baseline.
	// Nil when the baseline has no positive mobile revenue reference.
	PrimaryLiftPct *float64 `json:"primaryLiftPct"`
}

// Streak is a maximal run of consecutive days satisfying one predicate.
type Streak struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Length    int    `json:"length"`
}

package metrics

import (
	"testing"

	"ads-guardrail/internal/domain"
)

func testBaseline() domain.BaselineMetrics {
	return domain.BaselineMetrics{
		FindSubmitRate:          0.12,
		ReportClickRate:         0.30,
		AvgEngagementSeconds:    40,
		BounceRate:              fptr(0.40),
		MobileRevenuePerSession: fptr(0.05),
	}
}

func TestNormalizeDays_SortsWithoutMutatingInput(t *testing.T) {
	days := []domain.DailyMetrics{
		{Date: "2024-03-03", FindSubmits: 10, FindViews: 100},
		{Date: "2024-03-01", FindSubmits: 12, FindViews: 100},
		{Date: "2024-03-02", FindSubmits: 11, FindViews: 100},
	}

	evals := NormalizeDays(testBaseline(), days)

	wantOrder := []string{"2024-03-01", "2024-03-02", "2024-03-03"}
	for i, want := range wantOrder {
		if evals[i].Date != want {
			t.Errorf("evals[%d].Date = %s, want %s", i, evals[i].Date, want)
		}
	}
	if days[0].Date != "2024-03-03" {
		t.Errorf("input slice was reordered: first date %s", days[0].Date)
	}
}

func TestNormalizeDays_DerivedFields(t *testing.T) {
	days := []domain.DailyMetrics{{
		Date:                 "2024-03-01",
		FindSubmits:          9,
		FindViews:            100,
		ReportFindClicks:     27,
		ReportViews:          100,
		AvgEngagementSeconds: 35,
		BounceRate:           fptr(0.46),
		MobileSessions:       fptr(200),
		MobileRevenue:        fptr(12),
	}}

	e := NormalizeDays(testBaseline(), days)[0]

	assertFloatPtr(t, fptr(0.09), e.FindSubmitRate)
	assertFloatPtr(t, fptr(0.25), e.FindSubmitDropPct)
	assertFloatPtr(t, fptr(0.27), e.ReportFindClickRate)
	assertFloatPtr(t, fptr(0.10), e.ReportFindClickDropPct)
	if e.EngagementDeltaSeconds != -5 {
		t.Errorf("EngagementDeltaSeconds = %v, want -5", e.EngagementDeltaSeconds)
	}
	assertFloatPtr(t, fptr(0.06), e.MobileRevenuePerSession)
	assertFloatPtr(t, fptr(60), e.MobileRevenuePerMille)
	assertFloatPtr(t, fptr(0.06), e.BounceRiseAbsolute)
}

func TestNormalizeDays_MissingDataYieldsNil(t *testing.T) {
	baseline := testBaseline()
	baseline.BounceRate = nil

	days := []domain.DailyMetrics{{
		Date:                 "2024-03-01",
		FindSubmits:          5,
		FindViews:            0,
		ReportFindClicks:     5,
		ReportViews:          0,
		AvgEngagementSeconds: 10,
		BounceRate:           fptr(0.5),
		MobileRevenue:        fptr(10),
	}}

	e := NormalizeDays(baseline, days)[0]

	if e.FindSubmitRate != nil || e.FindSubmitDropPct != nil {
		t.Error("expected nil submit rate and drop for zero views")
	}
	if e.ReportFindClickRate != nil || e.ReportFindClickDropPct != nil {
		t.Error("expected nil click rate and drop for zero views")
	}
	if e.MobileRevenuePerSession != nil || e.MobileRevenuePerMille != nil {
		t.Error("expected nil revenue per session without mobile sessions")
	}
	if e.BounceRiseAbsolute != nil {
		t.Error("expected nil bounce rise without baseline bounce rate")
	}
	if e.EngagementDeltaSeconds != -30 {
		t.Errorf("EngagementDeltaSeconds = %v, want -30", e.EngagementDeltaSeconds)
	}
}

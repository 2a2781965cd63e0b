package decision

import (
	"errors"
	"testing"

	"ads-guardrail/internal/domain"
)

func TestInput_Validate(t *testing.T) {
	valid := testInput(healthyDay("2024-03-01"), healthyDay("2024-03-02"))
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	var nilInput *Input
	if err := nilInput.Validate(); !errors.Is(err, ErrNilInput) {
		t.Errorf("expected ErrNilInput, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(in *Input)
		wantErr error
	}{
		{
			name:    "no days",
			mutate:  func(in *Input) { in.Days = nil },
			wantErr: ErrNoDays,
		},
		{
			name:    "malformed date",
			mutate:  func(in *Input) { in.Days[1].Date = "03/02/2024" },
			wantErr: ErrMalformedDate,
		},
		{
			name:    "impossible date",
			mutate:  func(in *Input) { in.Days[1].Date = "2024-02-30" },
			wantErr: ErrMalformedDate,
		},
		{
			name:    "duplicate date",
			mutate:  func(in *Input) { in.Days[1].Date = in.Days[0].Date },
			wantErr: ErrDuplicateDate,
		},
		{
			name:    "negative counter",
			mutate:  func(in *Input) { in.Days[0].FindViews = -1 },
			wantErr: ErrInvalidDay,
		},
		{
			name:    "bounce above one",
			mutate:  func(in *Input) { in.Days[0].BounceRate = fptr(1.5) },
			wantErr: ErrInvalidDay,
		},
		{
			name:    "baseline rate above one",
			mutate:  func(in *Input) { in.Baseline.FindSubmitRate = 1.2 },
			wantErr: ErrInvalidBaseline,
		},
		{
			name:    "zero consecutive days",
			mutate:  func(in *Input) { in.Config.RequiredConsecutiveDays = 0 },
			wantErr: ErrInvalidConfig,
		},
		{
			name: "inverted soft band",
			mutate: func(in *Input) {
				in.Config.SoftReportFindClickDropMinPct = 0.15
				in.Config.SoftReportFindClickDropMaxPct = 0.12
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "soft band above hard threshold",
			mutate:  func(in *Input) { in.Config.SoftReportFindClickDropMaxPct = 0.5 },
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(healthyDay("2024-03-01"), healthyDay("2024-03-02"))
			tt.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInput_ValidateAllowsMissingOptionalBaseline(t *testing.T) {
	in := testInput(healthyDay("2024-03-01"))
	in.Baseline.BounceRate = nil
	in.Baseline.MobileRevenuePerSession = nil
	in.Days[0].MobileSessions = nil
	in.Days[0].MobileRevenue = nil

	if err := in.Validate(); err != nil {
		t.Errorf("optional fields should be allowed to be absent, got %v", err)
	}
}

func TestAction_ExitCode(t *testing.T) {
	want := map[domain.Action]int{
		domain.ActionHold:           0,
		domain.ActionHardRollback:   2,
		domain.ActionSoftRollback:   3,
		domain.ActionNoLiftRollback: 4,
	}
	for action, code := range want {
		if got := action.ExitCode(); got != code {
			t.Errorf("%s: exit code %d, want %d", action, got, code)
		}
	}
}

package decision

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ads-guardrail/internal/domain"
)

// Input is everything one evaluation needs. Evaluate never modifies it.
type Input struct {
	Baseline     domain.BaselineMetrics
	Config       domain.GuardrailConfig
	Days         []domain.DailyMetrics
	EndOfWindowB bool
	WindowLabel  string
}

// Validation errors returned by Input.Validate.
var (
	ErrNilInput        = errors.New("input is nil")
	ErrNoDays          = errors.New("no daily metrics in window")
	ErrMalformedDate   = errors.New("malformed date")
	ErrDuplicateDate   = errors.New("duplicate date")
	ErrInvalidDay      = errors.New("invalid daily metrics")
	ErrInvalidBaseline = errors.New("invalid baseline")
	ErrInvalidConfig   = errors.New("invalid guardrail config")
)

// validate is shared; validator.Validate caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// Validate rejects inputs the engine would otherwise process ambiguously:
// malformed or duplicate dates, negative counters, and policies whose soft
// click band is not ordered below the hard drop threshold.
func (in *Input) Validate() error {
	if in == nil {
		return ErrNilInput
	}
	if len(in.Days) == 0 {
		return ErrNoDays
	}

	if err := validate.Struct(in.Baseline); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
	}
	if err := validate.Struct(in.Config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seen := make(map[string]struct{}, len(in.Days))
	for i, d := range in.Days {
		if _, err := time.Parse(domain.DateLayout, d.Date); err != nil {
			return fmt.Errorf("%w: day %d has date %q", ErrMalformedDate, i, d.Date)
		}
		if _, dup := seen[d.Date]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateDate, d.Date)
		}
		seen[d.Date] = struct{}{}

		if err := validate.Struct(d); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDay, d.Date, err)
		}
	}

	return nil
}

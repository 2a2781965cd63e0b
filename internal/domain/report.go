package domain

import "time"

// Action is the recommendation produced for one evaluation window.
type Action string

const (
	ActionHold           Action = "hold"
	ActionHardRollback   Action = "hard_rollback"
	ActionSoftRollback   Action = "soft_rollback"
	ActionNoLiftRollback Action = "no_lift_rollback"
)

// Actions lists every action in precedence order (strongest first).
var Actions = []Action{ActionHardRollback, ActionSoftRollback, ActionNoLiftRollback, ActionHold}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionHold, ActionHardRollback, ActionSoftRollback, ActionNoLiftRollback:
		return true
	}
	return false
}

// IsRollback reports whether a recommends reverting or tuning the experiment.
func (a Action) IsRollback() bool {
	return a.Valid() && a != ActionHold
}

// ExitCode maps an action to the process exit status used by the CLI.
// 1 is reserved for usage and I/O errors.
func (a Action) ExitCode() int {
	switch a {
	case ActionHold:
		return 0
	case ActionHardRollback:
		return 2
	case ActionSoftRollback:
		return 3
	case ActionNoLiftRollback:
		return 4
	default:
		return 1
	}
}

// Tier groups reason codes by the action they drive.
type Tier string

const (
	TierHard   Tier = "hard"
	TierSoft   Tier = "soft"
	TierNoLift Tier = "no_lift"
)

// ReasonCode identifies which guardrail rule fired.
type ReasonCode string

const (
	ReasonHardFindSubmitDrop      ReasonCode = "hard_find_submit_drop"
	ReasonHardEngagementFloor     ReasonCode = "hard_engagement_floor"
	ReasonHardFlowBreakage        ReasonCode = "hard_flow_breakage"
	ReasonSoftReportFindClickDrop ReasonCode = "soft_report_find_click_drop"
	ReasonSoftBounceRise          ReasonCode = "soft_bounce_rise"
	ReasonNoLiftGuardrailWorsened ReasonCode = "no_lift_guardrail_worsened"
)

// Tier returns the tier a reason code belongs to, or "" for unknown codes.
func (c ReasonCode) Tier() Tier {
	switch c {
	case ReasonHardFindSubmitDrop, ReasonHardEngagementFloor, ReasonHardFlowBreakage:
		return TierHard
	case ReasonSoftReportFindClickDrop, ReasonSoftBounceRise:
		return TierSoft
	case ReasonNoLiftGuardrailWorsened:
		return TierNoLift
	}
	return ""
}

// Valid reports whether c is one of the six known codes.
func (c ReasonCode) Valid() bool {
	return c.Tier() != ""
}

// GuardrailReason explains one fired rule. Dates and Streaks carry the
// same evidence as Message in structured form.
type GuardrailReason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
	Dates   []string   `json:"dates,omitempty"`
	Streaks []Streak   `json:"streaks,omitempty"`
}

// GuardrailReport is the complete result of one evaluation.
type GuardrailReport struct {
	Baseline     BaselineMetrics `json:"baseline"`
	Config       GuardrailConfig `json:"config"`
	WindowLabel  string          `json:"windowLabel"`
	EndOfWindowB bool            `json:"endOfWindowB"`

	Action  Action          `json:"action"`
	Summary WindowSummary   `json:"summary"`
	Days    []DayEvaluation `json:"days"`

	HardReasons   []GuardrailReason `json:"hardReasons"`
	SoftReasons   []GuardrailReason `json:"softReasons"`
	NoLiftReasons []GuardrailReason `json:"noLiftReasons"`
	Warnings      []string          `json:"warnings"`
}

// EvaluationRecord is a persisted evaluation run.
type EvaluationRecord struct {
	RunID        string           `json:"runId"`
	ExperimentID string           `json:"experimentId"`
	WindowLabel  string           `json:"windowLabel"`
	Fingerprint  string           `json:"fingerprint"`
	Action       Action           `json:"action"`
	EvaluatedAt  time.Time        `json:"evaluatedAt"`
	Report       *GuardrailReport `json:"report"`
}

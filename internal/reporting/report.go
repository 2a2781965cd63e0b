package reporting

import (
	"time"

	"ads-guardrail/internal/domain"
)

// History summarizes the stored evaluation runs of one experiment.
type History struct {
	// Metadata
	GeneratedAt  time.Time `json:"generatedAt"`
	ExperimentID string    `json:"experimentId"`

	// ActionCounts has one row per action in domain.Actions order, zero counts included.
	ActionCounts []ActionCountRow `json:"actionCounts"`

	// Latest is the newest run, nil when no runs are recorded.
	Latest *HistoryRow `json:"latest"`

	// Runs are newest first.
	Runs []HistoryRow `json:"runs"`
}

// ActionCountRow counts runs that ended in one action.
type ActionCountRow struct {
	Action domain.Action `json:"action"`
	Count  int           `json:"count"`
}

// HistoryRow represents one evaluation run.
type HistoryRow struct {
	RunID         string              `json:"runId"`
	WindowLabel   string              `json:"windowLabel"`
	Fingerprint   string              `json:"fingerprint"`
	EvaluatedAt   time.Time           `json:"evaluatedAt"`
	EndOfWindowB  bool                `json:"endOfWindowB"`
	Action        domain.Action       `json:"action"`
	ReasonCodes   []domain.ReasonCode `json:"reasonCodes"` // hard, then soft, then no-lift
	WarningsCount int                 `json:"warningsCount"`
}

package reporting

import (
	"context"
	"fmt"
	"time"

	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/storage"
)

// Generator produces history reports from stored evaluation records.
type Generator struct {
	reportStore storage.ReportStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new history generator.
func NewGenerator(reportStore storage.ReportStore) *Generator {
	return &Generator{
		reportStore: reportStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the history of an experiment from at most limit newest runs.
func (g *Generator) Generate(ctx context.Context, experimentID string, limit int) (*History, error) {
	records, err := g.reportStore.ListByExperiment(ctx, experimentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluation records: %w", err)
	}

	counts := make(map[domain.Action]int, len(domain.Actions))
	rows := make([]HistoryRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, historyRow(rec))
		counts[rec.Action]++
	}

	actionCounts := make([]ActionCountRow, len(domain.Actions))
	for i, a := range domain.Actions {
		actionCounts[i] = ActionCountRow{Action: a, Count: counts[a]}
	}

	h := &History{
		GeneratedAt:  g.now(),
		ExperimentID: experimentID,
		ActionCounts: actionCounts,
		Runs:         rows,
	}
	if len(rows) > 0 {
		latest := rows[0]
		h.Latest = &latest
	}
	return h, nil
}

func historyRow(rec *domain.EvaluationRecord) HistoryRow {
	row := HistoryRow{
		RunID:       rec.RunID,
		WindowLabel: rec.WindowLabel,
		Fingerprint: rec.Fingerprint,
		EvaluatedAt: rec.EvaluatedAt,
		Action:      rec.Action,
	}
	if r := rec.Report; r != nil {
		row.EndOfWindowB = r.EndOfWindowB
		row.WarningsCount = len(r.Warnings)
		for _, tier := range [][]domain.GuardrailReason{r.HardReasons, r.SoftReasons, r.NoLiftReasons} {
			for _, reason := range tier {
				row.ReasonCodes = append(row.ReasonCodes, reason.Code)
			}
		}
	}
	return row
}

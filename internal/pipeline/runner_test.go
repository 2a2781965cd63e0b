package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/observability"
	"ads-guardrail/internal/reporting"
	"ads-guardrail/internal/storage"
	"ads-guardrail/internal/storage/memory"
)

var fixedTime = time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	records []*domain.EvaluationRecord
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, rec *domain.EvaluationRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRunner(t *testing.T) (*Runner, *memory.ReportStore) {
	t.Helper()
	days := memory.NewDailyMetricsStore()
	require.NoError(t, LoadFixtures(context.Background(), days))

	reports := memory.NewReportStore()
	r := NewRunner(days, reports, decision.NewBuilder(domain.DefaultGuardrailConfig()), quietLogger()).
		WithClock(func() time.Time { return fixedTime })
	return r, reports
}

func TestRunner_RunWindow_Fixtures(t *testing.T) {
	r, reports := setupRunner(t)
	ctx := context.Background()
	windows := FixtureWindows()

	recA, err := r.RunWindow(ctx, windows[0])
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, recA.Action)
	assert.Equal(t, "window-A", recA.WindowLabel)
	assert.Equal(t, fixedTime, recA.EvaluatedAt)
	assert.Len(t, recA.Report.Days, 7)

	recB, err := r.RunWindow(ctx, windows[1])
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSoftRollback, recB.Action)
	assert.True(t, recB.Report.EndOfWindowB)
	assert.NotEmpty(t, recB.Report.SoftReasons)
	assert.Empty(t, recB.Report.HardReasons)

	stored, err := reports.GetByRunID(ctx, recB.RunID)
	require.NoError(t, err)
	assert.Equal(t, recB.Fingerprint, stored.Fingerprint)
	assert.Equal(t, recB.Action, stored.Action)
}

func TestRunner_FingerprintStableAcrossRuns(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	spec := FixtureWindows()[1]

	first, err := r.RunWindow(ctx, spec)
	require.NoError(t, err)
	second, err := r.RunWindow(ctx, spec)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Report, second.Report)
}

func TestRunner_RunWindow_Errors(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()

	tests := []struct {
		name string
		spec WindowSpec
		want error
	}{
		{"empty experiment", WindowSpec{Start: "2024-03-01", End: "2024-03-02"}, ErrInvalidWindow},
		{"bad start", WindowSpec{ExperimentID: "x", Start: "03/01/2024", End: "2024-03-02"}, ErrInvalidWindow},
		{"end before start", WindowSpec{ExperimentID: "x", Start: "2024-03-05", End: "2024-03-02"}, ErrInvalidWindow},
		{"no days", WindowSpec{ExperimentID: "unknown", Start: "2024-03-01", End: "2024-03-02", Baseline: FixtureBaseline()}, decision.ErrNoDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RunWindow(ctx, tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRunner_RunAll_PreservesOrder(t *testing.T) {
	r, reports := setupRunner(t)
	r = r.WithParallelism(2)

	specs := append(FixtureWindows(), WindowSpec{ExperimentID: "unknown", Label: "empty", Start: "2024-01-01", End: "2024-01-02"})
	specs = append(specs, FixtureWindows()...)

	results, err := r.RunAll(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, results, len(specs))

	for i, res := range results {
		assert.Equal(t, specs[i].Label, res.Spec.Label)
	}
	assert.Equal(t, domain.ActionHold, results[0].Record.Action)
	assert.Equal(t, domain.ActionSoftRollback, results[1].Record.Action)
	assert.Error(t, results[2].Err)
	assert.Nil(t, results[2].Record)
	assert.Equal(t, domain.ActionSoftRollback, results[4].Record.Action)

	all, err := reports.ListByExperiment(context.Background(), FixtureExperimentID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRunner_RunAll_CancelledContext(t *testing.T) {
	r, _ := setupRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.RunAll(ctx, FixtureWindows())
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.Nil(t, res.Record)
	}
}

func TestRunner_PublishesAndRecordsMetrics(t *testing.T) {
	r, _ := setupRunner(t)
	pub := &recordingPublisher{err: errors.New("subscriber gone")}
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	r = r.WithPublisher(pub).WithMetrics(m).WithBackends("memory", "sqlite")

	rec, err := r.RunWindow(context.Background(), FixtureWindows()[1])
	require.NoError(t, err, "publish failures must not fail the run")

	require.Len(t, pub.records, 1)
	assert.Equal(t, rec.RunID, pub.records[0].RunID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(string(domain.ActionSoftRollback))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WindowRunsTotal.WithLabelValues(observability.StatusSuccess)))
	assert.Equal(t, float64(fixedTime.Unix()), testutil.ToFloat64(m.LastSuccessfulRun))
	assert.Equal(t, 2, testutil.CollectAndCount(m.DBQueryDuration), "one series per store operation")

	_, err = r.RunWindow(context.Background(), WindowSpec{})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WindowRunsTotal.WithLabelValues(observability.StatusError)))
}

func TestRunner_WritesArtifacts(t *testing.T) {
	r, _ := setupRunner(t)
	dir := t.TempDir()
	r = r.WithOutputDir(dir)

	rec, err := r.RunWindow(context.Background(), FixtureWindows()[0])
	require.NoError(t, err)

	runDir := filepath.Join(dir, FixtureExperimentID, rec.RunID)
	for _, name := range []string{reporting.ReportJSONFile, reporting.ReportMarkdownFile, reporting.DaysCSVFile} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}
}

type failingReportStore struct{ storage.ReportStore }

func (failingReportStore) Insert(context.Context, *domain.EvaluationRecord) error {
	return storage.ErrDuplicateKey
}

func TestRunner_StoreFailure(t *testing.T) {
	days := memory.NewDailyMetricsStore()
	require.NoError(t, LoadFixtures(context.Background(), days))
	r := NewRunner(days, failingReportStore{}, decision.NewBuilder(domain.DefaultGuardrailConfig()), quietLogger())

	_, err := r.RunWindow(context.Background(), FixtureWindows()[0])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

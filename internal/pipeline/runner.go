package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/idhash"
	"ads-guardrail/internal/notify"
	"ads-guardrail/internal/observability"
	"ads-guardrail/internal/reporting"
	"ads-guardrail/internal/storage"
)

// DefaultParallelism bounds concurrent window evaluations in RunAll.
const DefaultParallelism = 4

var (
	// ErrInvalidWindow is returned for a WindowSpec that cannot be evaluated.
	ErrInvalidWindow = errors.New("invalid window spec")
)

// WindowSpec identifies one evaluation window of an experiment.
type WindowSpec struct {
	ExperimentID string
	Label        string
	Start        string // inclusive, YYYY-MM-DD
	End          string // inclusive, YYYY-MM-DD
	EndOfWindowB bool
	Baseline     domain.BaselineMetrics
}

// Validate checks identifiers and the date range.
func (s WindowSpec) Validate() error {
	if s.ExperimentID == "" {
		return fmt.Errorf("%w: empty experiment id", ErrInvalidWindow)
	}
	start, err := time.Parse(domain.DateLayout, s.Start)
	if err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidWindow, s.Start)
	}
	end, err := time.Parse(domain.DateLayout, s.End)
	if err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidWindow, s.End)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidWindow, s.End, s.Start)
	}
	return nil
}

// WindowResult is the outcome of one window in RunAll.
// Exactly one of Record and Err is set.
type WindowResult struct {
	Spec   WindowSpec
	Record *domain.EvaluationRecord
	Err    error
}

// Runner loads windows from storage, evaluates them and records the results.
type Runner struct {
	daysStore   storage.DailyMetricsStore
	reportStore storage.ReportStore
	builder     *decision.Builder
	evaluator   *decision.Evaluator
	publisher   notify.Publisher
	metrics     *observability.Metrics // optional
	logger      *slog.Logger
	backends    [2]string // query metric labels: days store, report store
	outputDir   string    // optional, artifacts written per run
	parallelism int
	clock       func() time.Time
}

// NewRunner creates a new runner.
func NewRunner(
	daysStore storage.DailyMetricsStore,
	reportStore storage.ReportStore,
	builder *decision.Builder,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		daysStore:   daysStore,
		reportStore: reportStore,
		builder:     builder,
		evaluator:   decision.NewEvaluator(),
		publisher:   notify.Noop{},
		logger:      logger,
		backends:    [2]string{"memory", "memory"},
		parallelism: DefaultParallelism,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// WithPublisher sets where finished records are announced.
func (r *Runner) WithPublisher(p notify.Publisher) *Runner {
	r.publisher = p
	return r
}

// WithMetrics enables Prometheus recording.
func (r *Runner) WithMetrics(m *observability.Metrics) *Runner {
	r.metrics = m
	return r
}

// WithBackends names the days and report stores in query metrics.
func (r *Runner) WithBackends(days, reports string) *Runner {
	r.backends = [2]string{days, reports}
	return r
}

// WithOutputDir writes report artifacts to dir/<experiment>/<run id> for every run.
func (r *Runner) WithOutputDir(dir string) *Runner {
	r.outputDir = dir
	return r
}

// WithParallelism sets the RunAll concurrency limit. Values below 1 are ignored.
func (r *Runner) WithParallelism(n int) *Runner {
	if n > 0 {
		r.parallelism = n
	}
	return r
}

// RunWindow evaluates one window end to end.
func (r *Runner) RunWindow(ctx context.Context, spec WindowSpec) (*domain.EvaluationRecord, error) {
	start := time.Now()
	rec, err := r.runWindow(ctx, spec)
	if r.metrics != nil {
		status := observability.StatusSuccess
		if err != nil {
			status = observability.StatusError
		}
		r.metrics.RecordWindowRun(status, time.Since(start), r.clock())
	}
	if err != nil {
		r.logger.Error("window run failed",
			"experiment_id", spec.ExperimentID,
			"window", spec.Label,
			"error", err)
		return nil, err
	}
	return rec, nil
}

func (r *Runner) runWindow(ctx context.Context, spec WindowSpec) (*domain.EvaluationRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	queryStart := time.Now()
	days, err := r.daysStore.GetByRange(ctx, spec.ExperimentID, spec.Start, spec.End)
	r.recordQuery(r.backends[0], "get_daily_metrics", queryStart, err)
	if err != nil {
		return nil, fmt.Errorf("load daily metrics: %w", err)
	}

	input, err := r.builder.BuildWindow(spec.Baseline, days, spec.Label, spec.EndOfWindowB)
	if err != nil {
		return nil, fmt.Errorf("build input for %s/%s: %w", spec.ExperimentID, spec.Label, err)
	}

	return r.Record(ctx, spec.ExperimentID, input)
}

// Record evaluates a validated input and persists, reports and publishes the result.
// Publishing failures are logged and do not fail the run.
func (r *Runner) Record(ctx context.Context, experimentID string, input *decision.Input) (*domain.EvaluationRecord, error) {
	evalStart := time.Now()
	report := r.evaluator.Evaluate(*input)
	if r.metrics != nil {
		r.metrics.RecordEvaluation(report, time.Since(evalStart))
	}

	rec := &domain.EvaluationRecord{
		RunID:        idhash.NewRunID(),
		ExperimentID: experimentID,
		WindowLabel:  input.WindowLabel,
		Fingerprint: idhash.ComputeInputFingerprint(
			input.Baseline, input.Config, input.Days, input.EndOfWindowB, input.WindowLabel),
		Action:      report.Action,
		EvaluatedAt: r.clock(),
		Report:      report,
	}

	queryStart := time.Now()
	err := r.reportStore.Insert(ctx, rec)
	r.recordQuery(r.backends[1], "insert_evaluation_record", queryStart, err)
	if err != nil {
		return nil, fmt.Errorf("store evaluation record: %w", err)
	}

	if r.outputDir != "" {
		dir := filepath.Join(r.outputDir, experimentID, rec.RunID)
		if _, err := reporting.WriteArtifacts(dir, report); err != nil {
			return nil, fmt.Errorf("write artifacts: %w", err)
		}
	}

	if err := r.publisher.Publish(ctx, rec); err != nil {
		r.logger.Warn("publish evaluation failed", "run_id", rec.RunID, "error", err)
	}

	r.logger.Info("window evaluated",
		"experiment_id", experimentID,
		"window", rec.WindowLabel,
		"run_id", rec.RunID,
		"action", rec.Action,
		"hard_reasons", len(report.HardReasons),
		"soft_reasons", len(report.SoftReasons),
		"no_lift_reasons", len(report.NoLiftReasons),
		"warnings", len(report.Warnings))

	return rec, nil
}

// RunAll evaluates independent windows concurrently. Results are in input order;
// a failing window does not stop the others. The error is non-nil only when ctx ends.
func (r *Runner) RunAll(ctx context.Context, specs []WindowSpec) ([]WindowResult, error) {
	results := make([]WindowResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, spec := range specs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = WindowResult{Spec: spec, Err: err}
				return err
			}
			rec, err := r.RunWindow(gctx, spec)
			results[i] = WindowResult{Spec: spec, Record: rec, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (r *Runner) recordQuery(database, operation string, start time.Time, err error) {
	if r.metrics != nil {
		r.metrics.RecordDBQuery(database, operation, time.Since(start), err)
	}
}

// Package scheduler runs guardrail window evaluations on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"ads-guardrail/internal/observability"
	"ads-guardrail/internal/pipeline"
)

// WindowRunner evaluates a batch of windows.
type WindowRunner interface {
	RunAll(ctx context.Context, specs []pipeline.WindowSpec) ([]pipeline.WindowResult, error)
}

// Scheduler manages the periodic evaluation job.
type Scheduler struct {
	cron    *cron.Cron
	runner  WindowRunner
	specs   []pipeline.WindowSpec
	logger  *slog.Logger
	metrics *observability.Metrics // optional
	ctx     context.Context

	mu      sync.Mutex
	entryID cron.EntryID
}

// NewScheduler creates a new Scheduler. ctx bounds every scheduled run.
func NewScheduler(ctx context.Context, runner WindowRunner, specs []pipeline.WindowSpec, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner: runner,
		specs:  specs,
		logger: logger,
		ctx:    ctx,
	}
}

// WithMetrics counts scheduled runs by status.
func (s *Scheduler) WithMetrics(m *observability.Metrics) *Scheduler {
	s.metrics = m
	return s
}

// Register adds the evaluation job under a standard five-field cron expression.
func (s *Scheduler) Register(expr string) error {
	id, err := s.cron.AddFunc(expr, s.runScheduled)
	if err != nil {
		return fmt.Errorf("register evaluation job: %w", err)
	}
	s.mu.Lock()
	s.entryID = id
	s.mu.Unlock()
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "windows", len(s.specs))
}

// Stop stops the scheduler and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
	s.logger.Info("scheduler stopped")
}

// RunNow executes every configured window immediately.
func (s *Scheduler) RunNow(ctx context.Context) ([]pipeline.WindowResult, error) {
	if len(s.specs) == 0 {
		return nil, nil
	}
	results, err := s.runner.RunAll(ctx, s.specs)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("evaluation batch finished",
		"windows", len(s.specs),
		"failed", failed)
	return results, err
}

// Entry returns the registered job. It is not Valid before Register succeeds.
func (s *Scheduler) Entry() cron.Entry {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	return s.cron.Entry(id)
}

func (s *Scheduler) runScheduled() {
	status := observability.StatusSuccess
	if _, err := s.RunNow(s.ctx); err != nil {
		status = observability.StatusError
		s.logger.Error("scheduled evaluation aborted", "error", err)
	}
	if s.metrics != nil {
		s.metrics.ScheduledRuns.WithLabelValues(status).Inc()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

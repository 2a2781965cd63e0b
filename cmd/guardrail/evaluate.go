package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/pipeline"
	"ads-guardrail/internal/reporting"
	"ads-guardrail/internal/storage/sqlite"
)

type evaluateOptions struct {
	inputPath    string
	overridePath string
	outputDir    string
	recordDB     string
	experimentID string
}

func (c *cli) evaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one window and print the Markdown summary",
		Long: `Reads an evaluation document, merges an optional baseline override,
validates and evaluates it. Exit status: 0 hold, 2 hard_rollback,
3 soft_rollback, 4 no_lift_rollback, 1 on usage or I/O errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEvaluate(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", "Evaluation document (JSON)")
	cmd.Flags().StringVar(&opts.overridePath, "baseline-override", "", "Partial baseline (JSON) replacing document baseline fields")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Write report JSON, Markdown and per-day CSV here")
	cmd.Flags().StringVar(&opts.recordDB, "record-db", "", "SQLite file to record the run in")
	cmd.Flags().StringVar(&opts.experimentID, "experiment", "default", "Experiment ID used when recording")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (c *cli) runEvaluate(ctx context.Context, opts *evaluateOptions) error {
	doc, err := readDocument(opts.inputPath)
	if err != nil {
		return err
	}

	builder := decision.NewBuilder(domain.DefaultGuardrailConfig())
	if opts.overridePath != "" {
		o, err := readBaselineOverride(opts.overridePath)
		if err != nil {
			return err
		}
		builder = builder.WithBaselineOverride(*o)
	}

	input, err := builder.Build(doc)
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	var report *domain.GuardrailReport
	if opts.recordDB != "" {
		store, err := sqlite.Open(ctx, opts.recordDB)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := pipeline.NewRunner(nil, store, builder, c.logger).Record(ctx, opts.experimentID, input)
		if err != nil {
			return err
		}
		report = rec.Report
		c.logger.Info("run recorded", "run_id", rec.RunID, "fingerprint", rec.Fingerprint, "db", opts.recordDB)
	} else {
		report = decision.NewEvaluator().Evaluate(*input)
	}

	if opts.outputDir != "" {
		a, err := reporting.WriteArtifacts(opts.outputDir, report)
		if err != nil {
			return err
		}
		c.logger.Info("artifacts written", "json", a.JSONPath, "markdown", a.MarkdownPath, "csv", a.CSVPath)
	}

	fmt.Fprint(c.stdout, decision.RenderMarkdown(report))

	if report.Action != domain.ActionHold {
		return &actionError{action: report.Action}
	}
	return nil
}

func readDocument(path string) (*decision.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	doc, err := decision.ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func readBaselineOverride(path string) (*domain.BaselineOverride, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open baseline override: %w", err)
	}
	defer f.Close()

	o, err := decision.ParseBaselineOverride(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return o, nil
}

package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/domain"
)

// Artifact file names written by WriteArtifacts.
const (
	ReportJSONFile     = "guardrail_report.json"
	ReportMarkdownFile = "GUARDRAIL_REPORT.md"
	DaysCSVFile        = "guardrail_days.csv"
)

// Artifacts lists the files written for one report.
type Artifacts struct {
	JSONPath     string
	MarkdownPath string
	CSVPath      string
}

// WriteArtifacts writes the JSON report, Markdown summary and per-day CSV into dir.
func WriteArtifacts(dir string, r *domain.GuardrailReport) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	reportJSON, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	a := &Artifacts{
		JSONPath:     filepath.Join(dir, ReportJSONFile),
		MarkdownPath: filepath.Join(dir, ReportMarkdownFile),
		CSVPath:      filepath.Join(dir, DaysCSVFile),
	}

	files := []struct {
		path    string
		content []byte
	}{
		{a.JSONPath, append(reportJSON, '\n')},
		{a.MarkdownPath, []byte(decision.RenderMarkdown(r))},
		{a.CSVPath, []byte(RenderDaysCSV(r))},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.content, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
		}
	}

	return a, nil
}

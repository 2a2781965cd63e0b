package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/reporting"
)

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestEvaluate_ExitCodes(t *testing.T) {
	dir := t.TempDir()

	hard := decision.Template()
	second := hard.Days[0]
	second.Date = "2024-01-02"
	hard.Days = append(hard.Days, second)
	hard.Days[0].FindSubmits = 70
	hard.Days[1].FindSubmits = 70

	soft := decision.Template()
	soft.Days[0].ReportFindClicks = 260

	noLift := decision.Template()
	noLift.EndOfWindowB = true
	noLift.Days[0].ReportFindClicks = 295

	tests := []struct {
		name   string
		doc    *decision.Document
		want   int
		action domain.Action
	}{
		{"hold", decision.Template(), 0, domain.ActionHold},
		{"hard", hard, 2, domain.ActionHardRollback},
		{"soft", soft, 3, domain.ActionSoftRollback},
		{"no lift", noLift, 4, domain.ActionNoLiftRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeJSON(t, dir, tt.name+".json", tt.doc)
			code, stdout, _ := run("evaluate", "--input", path)
			assert.Equal(t, tt.want, code)
			assert.Contains(t, stdout, string(tt.action))
		})
	}
}

func TestEvaluate_UsageAndInputErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"days": [{"date": "2024-13-01"}]}`), 0644))

	code, _, stderr := run("evaluate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "input")

	code, _, _ = run("evaluate", "--input", filepath.Join(dir, "missing.json"))
	assert.Equal(t, 1, code)

	code, _, stderr = run("evaluate", "--input", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid input")
}

func TestEvaluate_BaselineOverrideAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	input := writeJSON(t, dir, "input.json", decision.Template())
	// Raising the baseline click rate turns the template day into a 14% click drop.
	override := writeJSON(t, dir, "override.json", domain.BaselineOverride{ReportClickRate: domain.Float64(0.35)})
	out := filepath.Join(dir, "out")

	code, _, _ := run("evaluate", "--input", input, "--baseline-override", override, "--output-dir", out)
	assert.Equal(t, domain.ActionSoftRollback.ExitCode(), code)

	raw, err := os.ReadFile(filepath.Join(out, reporting.ReportJSONFile))
	require.NoError(t, err)
	var report domain.GuardrailReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, 0.35, report.Baseline.ReportClickRate)

	for _, name := range []string{reporting.ReportMarkdownFile, reporting.DaysCSVFile} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestRecordAndHistory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	input := writeJSON(t, dir, "input.json", decision.Template())

	for i := 0; i < 2; i++ {
		code, _, stderr := run("evaluate", "--input", input, "--record-db", db, "--experiment", "exp-1")
		require.Equal(t, 0, code, stderr)
	}

	code, stdout, _ := run("history", "--record-db", db, "--experiment", "exp-1")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "# Guardrail History: exp-1")

	code, stdout, _ = run("history", "--record-db", db, "--experiment", "exp-1", "--format", "json")
	require.Equal(t, 0, code)
	var hist reporting.History
	require.NoError(t, json.Unmarshal([]byte(stdout), &hist))
	assert.Len(t, hist.Runs, 2)
	assert.Equal(t, hist.Runs[0].Fingerprint, hist.Runs[1].Fingerprint)

	code, _, _ = run("history", "--record-db", db, "--format", "xml")
	assert.Equal(t, 1, code)
}

func TestTemplate(t *testing.T) {
	code, stdout, _ := run("template")
	require.Equal(t, 0, code)
	doc, err := decision.ParseDocument(bytes.NewBufferString(stdout))
	require.NoError(t, err)
	assert.Len(t, doc.Days, 1)

	path := filepath.Join(t.TempDir(), "template.json")
	code, _, _ = run("template", "--output", path)
	require.Equal(t, 0, code)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

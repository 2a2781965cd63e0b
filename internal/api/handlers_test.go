package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/domain"
	"ads-guardrail/internal/pipeline"
	"ads-guardrail/internal/reporting"
	"ads-guardrail/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedTime = time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)

type testServer struct {
	router  *gin.Engine
	reports *memory.ReportStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := decision.NewBuilder(domain.DefaultGuardrailConfig())
	days := memory.NewDailyMetricsStore()
	reports := memory.NewReportStore()
	require.NoError(t, pipeline.LoadFixtures(context.Background(), days))

	runner := pipeline.NewRunner(days, reports, builder, logger).
		WithClock(func() time.Time { return fixedTime })

	router := gin.New()
	SetupRoutes(router, NewHandlers(builder, runner, reports, logger), nil)
	return &testServer{router: router, reports: reports}
}

func (s *testServer) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func templateBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(decision.Template())
	require.NoError(t, err)
	return body
}

func TestEvaluate_ReturnsReport(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/evaluate", templateBody(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report domain.GuardrailReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Action.Valid())
	assert.NotEmpty(t, report.Days)

	all, err := s.reports.ListByExperiment(context.Background(), "any", 0)
	require.NoError(t, err)
	assert.Empty(t, all, "evaluation without experiment is not persisted")
}

func TestEvaluate_PersistsWithExperiment(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/evaluate?experiment=exp-1", templateBody(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec domain.EvaluationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "exp-1", rec.ExperimentID)
	assert.NotEmpty(t, rec.Fingerprint)
	assert.True(t, rec.EvaluatedAt.Equal(fixedTime))

	got := s.do(http.MethodGet, "/v1/reports/"+rec.RunID, nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), rec.Fingerprint)
}

func TestEvaluate_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"unknown field", `{"days": [], "surprise": 1}`},
		{"no days", `{"baseline": {"findSubmitRate": 0.1, "reportClickRate": 0.3, "avgEngagementSeconds": 40}, "days": []}`},
		{"bad date", `{"baseline": {"findSubmitRate": 0.1, "reportClickRate": 0.3, "avgEngagementSeconds": 40}, "days": [{"date": "03/01/2024"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/v1/evaluate", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGetReport_Errors(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/reports/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/reports/6f1c2a8e-4c1b-4d7e-9a55-0d0b8c0a1f42", nil).Code)
}

func TestHistory_Formats(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/v1/evaluate?experiment=exp-1", templateBody(t)).Code)
	}

	w := s.do(http.MethodGet, "/v1/experiments/exp-1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist reporting.History
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Len(t, hist.Runs, 2)
	assert.NotNil(t, hist.Latest)

	md := s.do(http.MethodGet, "/v1/experiments/exp-1/history?format=markdown&limit=1", nil)
	require.Equal(t, http.StatusOK, md.Code)
	assert.True(t, strings.HasPrefix(md.Body.String(), "# Guardrail History: exp-1"))

	csv := s.do(http.MethodGet, "/v1/experiments/exp-1/history?format=csv", nil)
	require.Equal(t, http.StatusOK, csv.Code)
	assert.Len(t, strings.Split(strings.TrimSpace(csv.Body.String()), "\n"), 3)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/experiments/exp-1/history?format=xml", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/experiments/exp-1/history?limit=-1", nil).Code)
}

func TestHealthAndTemplate(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", nil).Code)

	w := s.do(http.MethodGet, "/v1/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc, err := decision.ParseDocument(w.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Days)
}

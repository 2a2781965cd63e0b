// Package api exposes the guardrail engine over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ads-guardrail/internal/decision"
	"ads-guardrail/internal/idhash"
	"ads-guardrail/internal/pipeline"
	"ads-guardrail/internal/reporting"
	"ads-guardrail/internal/storage"
)

// DefaultHistoryLimit caps history responses when no limit is given.
const DefaultHistoryLimit = 50

// Handlers holds the dependencies of the HTTP endpoints.
type Handlers struct {
	builder   *decision.Builder
	evaluator *decision.Evaluator
	runner    *pipeline.Runner
	reports   storage.ReportStore
	history   *reporting.Generator
	logger    *slog.Logger
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(builder *decision.Builder, runner *pipeline.Runner, reports storage.ReportStore, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		builder:   builder,
		evaluator: decision.NewEvaluator(),
		runner:    runner,
		reports:   reports,
		history:   reporting.NewGenerator(reports),
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Evaluate handles POST /v1/evaluate. The body is an evaluation document.
// With ?experiment=ID the run is persisted and the stored record is returned
// with 201; otherwise the bare report is returned with 200.
func (h *Handlers) Evaluate(c *gin.Context) {
	doc, err := decision.ParseDocument(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	input, err := h.builder.Build(doc)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	experimentID := c.Query("experiment")
	if experimentID == "" {
		c.JSON(http.StatusOK, h.evaluator.Evaluate(*input))
		return
	}

	rec, err := h.runner.Record(c.Request.Context(), experimentID, input)
	if err != nil {
		h.logger.Error("record evaluation failed", "experiment_id", experimentID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to record evaluation"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GetReport handles GET /v1/reports/:runID.
func (h *Handlers) GetReport(c *gin.Context) {
	runID := c.Param("runID")
	if !idhash.ValidRunID(runID) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed run id"})
		return
	}

	rec, err := h.reports.GetByRunID(c.Request.Context(), runID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		h.logger.Error("load evaluation record failed", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load run"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// History handles GET /v1/experiments/:experimentID/history.
// ?format=markdown or ?format=csv switch from JSON to rendered output.
func (h *Handlers) History(c *gin.Context) {
	limit := DefaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	hist, err := h.history.Generate(c.Request.Context(), c.Param("experimentID"), limit)
	if err != nil {
		h.logger.Error("generate history failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load history"})
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, hist)
	case "markdown":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(reporting.RenderHistoryMarkdown(hist)))
	case "csv":
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(reporting.RenderHistoryCSV(hist.Runs)))
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "format must be json, markdown or csv"})
	}
}

// Template handles GET /v1/template.
func (h *Handlers) Template(c *gin.Context) {
	c.JSON(http.StatusOK, decision.Template())
}

// Health handles GET /healthz.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

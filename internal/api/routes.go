package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ads-guardrail/internal/observability"
)

// SetupRoutes registers every endpoint. feed serves the websocket stream of
// evaluation records and may be nil.
func SetupRoutes(router *gin.Engine, h *Handlers, feed http.Handler) {
	router.GET("/healthz", Health)
	router.GET("/metrics", gin.WrapH(observability.Handler()))
	if feed != nil {
		router.GET("/ws", gin.WrapH(feed))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/evaluate", h.Evaluate)
		v1.GET("/template", h.Template)
		v1.GET("/reports/:runID", h.GetReport)
		v1.GET("/experiments/:experimentID/history", h.History)
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

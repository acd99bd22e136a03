package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/dto"
)

type metricsSource interface {
	Handler() http.Handler
	Snapshot() dto.SystemMetrics
}

type pinger interface {
	Ping(ctx context.Context) error
}

const healthPingTimeout = 2 * time.Second

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics metricsSource
	db      pinger
	logger  *zap.Logger
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics metricsSource, db pinger, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{metrics: metrics, db: db, logger: logger}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Process metrics summary
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SystemMetrics
// @Router /admin/metrics [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// Healthz godoc
// @Summary Liveness with database status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *MetricsHandler) Healthz(c *gin.Context) {
	database := "connected"
	if h.db == nil {
		database = "disconnected"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health check ping failed", zap.Error(err))
			database = "disconnected"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": database})
}

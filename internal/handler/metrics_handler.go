package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/service"
)

// MetricsHandler serves the Prometheus scrape endpoint and liveness probe.
type MetricsHandler struct {
	metrics *service.MetricsService
	started time.Time
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, started: time.Now().UTC()}
}

// Prometheus exposes the metrics registry in the Prometheus text format.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags observability
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Truncate(time.Second).String(),
	})
}

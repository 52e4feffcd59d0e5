package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupanel/scheduling-api/internal/service"
)

// Metrics records per-request latency and status counts. Unmatched routes fall
// back to the raw path so 404 probes stay visible.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(started))
	}
}

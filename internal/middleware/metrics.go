package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bookdb-api/internal/service"
)

// Metrics returns middleware that records request duration and count. Routes are labelled by
// their pattern so ids do not explode label cardinality; unmatched paths share one label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gonasi-backend/internal/observability"
)

// Metrics records request counts, latency and in-flight requests per route.
// Routes in streamRoutes are long-lived (SSE) and only move the in-flight gauge.
func Metrics(m *observability.Metrics, streamRoutes ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	streams := make(map[string]bool, len(streamRoutes))
	for _, r := range streamRoutes {
		streams[r] = true
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		m.ApiInflightInc()
		defer m.ApiInflightDec()
		if streams[route] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

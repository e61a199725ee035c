package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/observability"
)

// Metrics instruments request counts and latency. A nil registry turns the
// middleware into a pass-through so test routers need no wiring.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.InflightInc()
		defer m.InflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

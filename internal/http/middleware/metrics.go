package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics is the slice of observability.Metrics the HTTP layer records.
type HTTPMetrics interface {
	ObserveAPI(method, route, status string, dur time.Duration)
	ApiInflightInc()
	ApiInflightDec()
	IncBridgeWebhook(route, status string)
}

// Metrics records request counts and latency by route template. Health checks
// and scrapes are not recorded. Bridge webhooks also get their own counter.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		channel := RequestChannel(c.Request.URL.Path)
		if channel == ChannelSystem {
			c.Next()
			return
		}

		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.ObserveAPI(c.Request.Method, route, status, time.Since(start))
		if channel == ChannelBridge {
			m.IncBridgeWebhook(route, status)
		}
	}
}

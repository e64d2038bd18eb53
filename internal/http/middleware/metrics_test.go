package middleware

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recordedMetrics struct {
	mu       sync.Mutex
	api      []string
	webhooks []string
	inflight int
}

func (m *recordedMetrics) ObserveAPI(method, route, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.api = append(m.api, method+" "+route+" "+status)
}

func (m *recordedMetrics) ApiInflightInc() { m.mu.Lock(); m.inflight++; m.mu.Unlock() }
func (m *recordedMetrics) ApiInflightDec() { m.mu.Lock(); m.inflight--; m.mu.Unlock() }

func (m *recordedMetrics) IncBridgeWebhook(route, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, route+" "+status)
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	m := &recordedMetrics{}
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/up", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/leads/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/whatsapp/webhook/message", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	serve(r, http.MethodGet, "/up", nil)
	serve(r, http.MethodGet, "/api/leads/7f0c", nil)
	serve(r, http.MethodPost, "/api/whatsapp/webhook/message", nil)
	serve(r, http.MethodGet, "/api/nope", nil)

	assert.Equal(t, []string{
		"GET /api/leads/:id 200",
		"POST /api/whatsapp/webhook/message 401",
		"GET unmatched 404",
	}, m.api)
	assert.Equal(t, []string{"/api/whatsapp/webhook/message 401"}, m.webhooks)
	assert.Zero(t, m.inflight)
}

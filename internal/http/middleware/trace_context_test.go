package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
)

func TestRequestChannel(t *testing.T) {
	cases := map[string]string{
		"/api/whatsapp/webhook/message": ChannelBridge,
		"/api/whatsapp/sync-chats":      ChannelBridge,
		"/api/whatsapp/clear-chats":     ChannelBridge,
		"/api/whatsapp/conversations":   ChannelAPI,
		"/api/mapa/proyectos":           ChannelMapa,
		"/up":                           ChannelSystem,
		"/metrics":                      ChannelSystem,
		"/api/leads":                    ChannelAPI,
	}
	for path, want := range cases {
		assert.Equal(t, want, RequestChannel(path), path)
	}
}

func TestAttachTraceContext(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	var got *ctxutil.TraceData
	r := gin.New()
	r.Use(AttachTraceContext())
	r.POST("/api/whatsapp/sync-chats", func(c *gin.Context) {
		got = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := serve(r, http.MethodPost, "/api/whatsapp/sync-chats", map[string]string{
		"X-Request-Id": "bridge-42",
		"X-Trace-Id":   "abc123",
	})
	assert.Equal(t, "bridge-42", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "abc123", rec.Header().Get("X-Trace-Id"))
	if assert.NotNil(t, got) {
		assert.Equal(t, "bridge-42", got.RequestID)
		assert.Equal(t, ChannelBridge, got.Channel)
	}

	rec = serve(r, http.MethodPost, "/api/whatsapp/sync-chats", map[string]string{
		"X-Request-Id": "bad id\nlog injection",
	})
	reqID := rec.Header().Get("X-Request-Id")
	assert.NotEmpty(t, reqID)
	assert.False(t, strings.ContainsAny(reqID, " \n"))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

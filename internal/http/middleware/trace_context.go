package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

const (
	ChannelBridge = "bridge"
	ChannelMapa   = "mapa"
	ChannelSystem = "system"
	ChannelAPI    = "api"
)

// Ids echoed back in headers and logs; the bridge and browsers send their own.
var safeRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestChannel classifies a request path by caller: the WhatsApp bridge
// webhooks, the public map, health and metrics endpoints, or the agent API.
func RequestChannel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/whatsapp/webhook/"),
		path == "/api/whatsapp/sync-chats",
		path == "/api/whatsapp/clear-chats":
		return ChannelBridge
	case strings.HasPrefix(path, "/api/mapa/"):
		return ChannelMapa
	case path == "/up", path == "/metrics":
		return ChannelSystem
	default:
		return ChannelAPI
	}
}

func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if !safeRequestID.MatchString(reqID) {
			reqID = uuid.New().String()
		}

		span := trace.SpanFromContext(c.Request.Context())
		traceID := ""
		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			if h := strings.TrimSpace(c.GetHeader(headerTraceID)); safeRequestID.MatchString(h) {
				traceID = h
			}
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		channel := RequestChannel(c.Request.URL.Path)
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
			Channel:   channel,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)

		span.SetAttributes(
			attribute.String("crm.request_id", reqID),
			attribute.String("crm.channel", channel),
		)

		c.Next()

		if uid := ctxutil.CurrentUserID(c.Request.Context()); uid != uuid.Nil {
			span.SetAttributes(attribute.String("enduser.id", uid.String()))
		}
	}
}

package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/ctxutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
)

type StreamMetrics interface {
	SetSSESubscribers(n int)
}

type RealtimeHandler struct {
	log     *logger.Logger
	hub     *realtime.SSEHub
	metrics StreamMetrics

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: SessionID (UserToken.ID)
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, metrics StreamMetrics) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		metrics: metrics,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

func (h *RealtimeHandler) session(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil || rd.SessionID == uuid.Nil {
		response.Fail(c, http.StatusUnauthorized, "unauthorized", "No autenticado")
		return nil, false
	}
	return rd, true
}

// SSEStream holds the connection open until the client leaves. Every stream
// joins the user's channel and the shared inbox channel.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd, ok := h.session(c)
	if !ok {
		return
	}

	h.mu.Lock()
	// One stream per session; a reconnect replaces the old one.
	if existing, ok := h.clients[rd.SessionID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, rd.SessionID)
	}
	client := h.hub.NewSSEClient(rd.UserID)
	client.Logger = h.log.With("sse_client_id", client.ID.String())
	h.clients[rd.SessionID] = client
	h.reportLocked()
	h.mu.Unlock()

	h.hub.AddChannel(client, realtime.UserChannel(rd.UserID))
	h.hub.AddChannel(client, realtime.ChannelWhatsapp)
	h.log.Info("SSE stream open", "user_id", rd.UserID.String(), "session_id", rd.SessionID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[rd.SessionID] == client {
		delete(h.clients, rd.SessionID)
	}
	h.reportLocked()
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

func (h *RealtimeHandler) reportLocked() {
	if h.metrics != nil {
		h.metrics.SetSSESubscribers(len(h.clients))
	}
}

type channelRequest struct {
	Channel string `json:"channel" binding:"required,max=100"`
}

// canJoin reports whether a user may listen on channel: the shared inbox or
// their own user channel.
func canJoin(userID uuid.UUID, channel string) bool {
	return channel == realtime.ChannelWhatsapp || channel == realtime.UserChannel(userID)
}

func (h *RealtimeHandler) clientFor(c *gin.Context, joining bool) (*realtime.SSEClient, string, bool) {
	rd, ok := h.session(c)
	if !ok {
		return nil, "", false
	}
	var req channelRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return nil, "", false
	}
	channel := strings.TrimSpace(req.Channel)
	if joining && !canJoin(rd.UserID, channel) {
		h.log.Warn("SSE subscribe refused", "user_id", rd.UserID.String(), "channel", channel)
		response.Fail(c, http.StatusForbidden, "channel_forbidden", "No autorizado para este canal")
		return nil, "", false
	}

	h.mu.RLock()
	client, exists := h.clients[rd.SessionID]
	h.mu.RUnlock()
	if !exists {
		response.Fail(c, http.StatusConflict, "no_stream", "No hay una conexión SSE activa para esta sesión")
		return nil, "", false
	}
	return client, channel, true
}

func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.clientFor(c, true)
	if !ok {
		return
	}
	h.hub.AddChannel(client, channel)
	response.OKMessage(c, "subscribed", gin.H{"channel": channel})
}

func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.clientFor(c, false)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	response.OKMessage(c, "unsubscribed", gin.H{"channel": channel})
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	warepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type WhatsappMessageHandler struct {
	log      *logger.Logger
	messages services.WhatsappMessageService
}

func NewWhatsappMessageHandler(log *logger.Logger, messages services.WhatsappMessageService) *WhatsappMessageHandler {
	return &WhatsappMessageHandler{log: log.With("handler", "WhatsappMessageHandler"), messages: messages}
}

// GET /api/whatsapp/messages?conversation_id=&direction=&type=&page=
func (h *WhatsappMessageHandler) List(c *gin.Context) {
	convID, err := queryUUID(c, "conversation_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	f := warepo.MessageFilter{
		ConversationID: convID,
		Direction:      strings.TrimSpace(c.Query("direction")),
		Type:           strings.TrimSpace(c.Query("type")),
	}
	page, err := h.messages.List(dbcFrom(c), f, pagination.New(queryPage(c), services.MessagesPerPage, services.MessagesPerPage))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// GET /api/whatsapp/messages/conversation/:id
func (h *WhatsappMessageHandler) ByConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.messages.ByConversation(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GET /api/whatsapp/messages/conversation/:id/media
func (h *WhatsappMessageHandler) Media(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.messages.Media(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappMessageHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.messages.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// POST /api/whatsapp/messages sends a message as the current agent.
func (h *WhatsappMessageHandler) Send(c *gin.Context) {
	var req struct {
		ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
		Type           string    `json:"type" binding:"required"`
		Content        string    `json:"content" binding:"required"`
		MediaURL       string    `json:"media_url" binding:"omitempty,url"`
		MediaMimeType  string    `json:"media_mime_type" binding:"max=100"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	m, err := h.messages.Send(c.Request.Context(), services.SendMessageInput{
		ConversationID: req.ConversationID,
		Type:           req.Type,
		Content:        req.Content,
		MediaURL:       req.MediaURL,
		MediaMimeType:  req.MediaMimeType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Mensaje enviado exitosamente", m)
}

// POST /api/whatsapp/messages/:id/status
func (h *WhatsappMessageHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	m, err := h.messages.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Estado actualizado exitosamente", m)
}

// POST /api/whatsapp/messages/mark-read
func (h *WhatsappMessageHandler) MarkRead(c *gin.Context) {
	var req struct {
		MessageIDs []uuid.UUID `json:"message_ids" binding:"required,min=1"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.messages.MarkRead(c.Request.Context(), req.MessageIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Mensajes marcados como leídos", gin.H{"updated": n})
}

func (h *WhatsappMessageHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Mensaje eliminado exitosamente", nil)
}

type incomingRequest struct {
	MessageID    string `json:"message_id" form:"message_id"`
	ContactPhone string `json:"contact_phone" form:"contact_phone"`
	ContactName  string `json:"contact_name" form:"contact_name"`
	Content      string `json:"content" form:"content"`
	Type         string `json:"type" form:"type"`
	SenderPhone  string `json:"sender_phone" form:"sender_phone"`
	SenderName   string `json:"sender_name" form:"sender_name"`
	Timestamp    int64  `json:"timestamp" form:"timestamp"`
}

// POST /api/whatsapp/webhook/message receives one message from the bridge,
// either as JSON or as multipart with an optional "file" part.
func (h *WhatsappMessageHandler) Webhook(c *gin.Context) {
	var req incomingRequest
	if err := validation.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	in := services.IncomingMessage{
		MessageID:    strings.TrimSpace(req.MessageID),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		ContactName:  strings.TrimSpace(req.ContactName),
		Content:      req.Content,
		Type:         strings.TrimSpace(req.Type),
		SenderPhone:  strings.TrimSpace(req.SenderPhone),
		SenderName:   strings.TrimSpace(req.SenderName),
		Timestamp:    req.Timestamp,
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		switch {
		case err == nil:
			if fh.Size > services.MaxMediaBytes {
				response.Error(c, apierr.Field("file", "El archivo no puede superar 50 MB"))
				return
			}
			f, err := fh.Open()
			if err != nil {
				response.Error(c, apierr.BadRequest("invalid_file", "No se pudo leer el archivo"))
				return
			}
			defer f.Close()
			in.File = &services.IncomingFile{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			h.log.Warn("webhook multipart file unreadable", "error", err)
		}
	}

	res, err := h.messages.Receive(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Duplicate {
		response.OKMessage(c, "Mensaje ya registrado", res.Message)
		return
	}
	response.Created(c, "Mensaje recibido exitosamente", gin.H{
		"message":    res.Message,
		"auto_reply": res.AutoReply,
	})
}

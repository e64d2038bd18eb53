package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	warepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type WhatsappAutoReplyHandler struct {
	autoReplies services.WhatsappAutoReplyService
}

func NewWhatsappAutoReplyHandler(autoReplies services.WhatsappAutoReplyService) *WhatsappAutoReplyHandler {
	return &WhatsappAutoReplyHandler{autoReplies: autoReplies}
}

type autoReplyRequest struct {
	TriggerKeyword *string `json:"trigger_keyword" binding:"omitempty,max=255"`
	ReplyMessage   *string `json:"reply_message"`
	IsActive       *bool   `json:"is_active"`
	IsGreeting     *bool   `json:"is_greeting"`
	Priority       *int    `json:"priority" binding:"omitempty,gte=0,lte=100"`
}

func (r autoReplyRequest) input() services.AutoReplyInput {
	return services.AutoReplyInput{
		TriggerKeyword: r.TriggerKeyword,
		ReplyMessage:   r.ReplyMessage,
		IsActive:       r.IsActive,
		IsGreeting:     r.IsGreeting,
		Priority:       r.Priority,
	}
}

// GET /api/whatsapp/auto-replies?is_active=&is_greeting=
func (h *WhatsappAutoReplyHandler) List(c *gin.Context) {
	f := warepo.AutoReplyFilter{
		IsActive:   queryOptBool(c, "is_active"),
		IsGreeting: queryOptBool(c, "is_greeting"),
	}
	out, err := h.autoReplies.List(dbcFrom(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappAutoReplyHandler) Active(c *gin.Context) {
	out, err := h.autoReplies.Active(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappAutoReplyHandler) Keywords(c *gin.Context) {
	out, err := h.autoReplies.Keywords(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappAutoReplyHandler) Greeting(c *gin.Context) {
	g, err := h.autoReplies.Greeting(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

func (h *WhatsappAutoReplyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.autoReplies.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

func (h *WhatsappAutoReplyHandler) Create(c *gin.Context) {
	var req autoReplyRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	a, err := h.autoReplies.Create(c.Request.Context(), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Respuesta automática creada exitosamente", a)
}

func (h *WhatsappAutoReplyHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req autoReplyRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	a, err := h.autoReplies.Update(c.Request.Context(), id, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Respuesta automática actualizada exitosamente", a)
}

func (h *WhatsappAutoReplyHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.autoReplies.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Respuesta automática eliminada exitosamente", nil)
}

func (h *WhatsappAutoReplyHandler) Activate(c *gin.Context) {
	h.setActive(c, true, "Respuesta automática activada exitosamente")
}

func (h *WhatsappAutoReplyHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false, "Respuesta automática desactivada exitosamente")
}

func (h *WhatsappAutoReplyHandler) setActive(c *gin.Context, active bool, message string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.autoReplies.SetActive(c.Request.Context(), id, active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, message, a)
}

// POST /api/whatsapp/auto-replies/:id/priority
func (h *WhatsappAutoReplyHandler) SetPriority(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Priority *int `json:"priority" binding:"required,gte=0,lte=100"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	a, err := h.autoReplies.SetPriority(c.Request.Context(), id, *req.Priority)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Prioridad actualizada exitosamente", a)
}

// POST /api/whatsapp/auto-replies/find-match
func (h *WhatsappAutoReplyHandler) FindMatch(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	a, err := h.autoReplies.FindMatch(dbcFrom(c), req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	if a == nil {
		response.Error(c, apierr.NotFound("auto_reply_not_found", "No se encontró respuesta automática para este mensaje"))
		return
	}
	response.OK(c, a)
}

// POST /api/whatsapp/auto-replies/bulk-toggle
func (h *WhatsappAutoReplyHandler) BulkToggle(c *gin.Context) {
	var req struct {
		IDs      []uuid.UUID `json:"ids" binding:"required,min=1"`
		IsActive *bool       `json:"is_active" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	n, err := h.autoReplies.BulkToggle(c.Request.Context(), req.IDs, *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Respuestas automáticas actualizadas exitosamente", gin.H{"updated": n})
}

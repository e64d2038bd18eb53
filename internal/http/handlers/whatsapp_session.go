package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type WhatsappSessionHandler struct {
	sessions services.WhatsappSessionService
}

func NewWhatsappSessionHandler(sessions services.WhatsappSessionService) *WhatsappSessionHandler {
	return &WhatsappSessionHandler{sessions: sessions}
}

type sessionRequest struct {
	SessionID   *string `json:"session_id" binding:"omitempty,max=255"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=20"`
	AgentID     *string `json:"agent_id"`
	Status      *string `json:"status"`
}

func (h *WhatsappSessionHandler) bind(c *gin.Context) (services.SessionInput, bool) {
	var req sessionRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return services.SessionInput{}, false
	}
	verr := apierr.NewValidation()
	in := services.SessionInput{
		SessionID:   req.SessionID,
		PhoneNumber: req.PhoneNumber,
		AgentID:     optUUID(verr, "agent_id", req.AgentID),
		Status:      req.Status,
	}
	if err := verr.OrNil(); err != nil {
		response.Error(c, err)
		return services.SessionInput{}, false
	}
	return in, true
}

func (h *WhatsappSessionHandler) List(c *gin.Context) {
	out, err := h.sessions.List(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappSessionHandler) Active(c *gin.Context) {
	out, err := h.sessions.Active(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappSessionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.sessions.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, s)
}

func (h *WhatsappSessionHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	s, err := h.sessions.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Sesión creada exitosamente", s)
}

func (h *WhatsappSessionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	s, err := h.sessions.Update(c.Request.Context(), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Sesión actualizada exitosamente", s)
}

func (h *WhatsappSessionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Sesión eliminada exitosamente", nil)
}

// GET /api/whatsapp/sessions/:id/qr
func (h *WhatsappSessionHandler) GetQR(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.sessions.GetQR(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"qr_code": s.QRCode, "status": s.Status})
}

// POST /api/whatsapp/sessions/:id/qr
func (h *WhatsappSessionHandler) SetQR(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		QRCode string `json:"qr_code" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	s, err := h.sessions.SetQR(c.Request.Context(), id, req.QRCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Código QR actualizado exitosamente", s)
}

// POST /api/whatsapp/sessions/:id/status
func (h *WhatsappSessionHandler) SetStatus(c *gin.Context) {
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
	s, err := h.sessions.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Estado actualizado exitosamente", s)
}

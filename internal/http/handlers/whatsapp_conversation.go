package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	warepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/whatsapp"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type WhatsappConversationHandler struct {
	conversations services.WhatsappConversationService
}

func NewWhatsappConversationHandler(conversations services.WhatsappConversationService) *WhatsappConversationHandler {
	return &WhatsappConversationHandler{conversations: conversations}
}

type conversationRequest struct {
	ContactPhone      *string `json:"contact_phone" binding:"omitempty,max=20"`
	ContactName       *string `json:"contact_name" binding:"omitempty,max=255"`
	ContactProfilePic *string `json:"contact_profile_pic"`
	LeadID            *string `json:"lead_id"`
	AssignedAgentID   *string `json:"assigned_agent_id"`
	Status            *string `json:"status"`
}

func (h *WhatsappConversationHandler) bind(c *gin.Context) (services.ConversationInput, bool) {
	var req conversationRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return services.ConversationInput{}, false
	}
	verr := apierr.NewValidation()
	in := services.ConversationInput{
		ContactPhone:      req.ContactPhone,
		ContactName:       req.ContactName,
		ContactProfilePic: req.ContactProfilePic,
		LeadID:            optUUID(verr, "lead_id", req.LeadID),
		AssignedAgentID:   optUUID(verr, "assigned_agent_id", req.AssignedAgentID),
		Status:            req.Status,
	}
	if err := verr.OrNil(); err != nil {
		response.Error(c, err)
		return services.ConversationInput{}, false
	}
	return in, true
}

// GET /api/whatsapp/conversations?status=&assigned_agent_id=&unread=
func (h *WhatsappConversationHandler) List(c *gin.Context) {
	agentID, err := queryUUID(c, "assigned_agent_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	f := warepo.ConversationFilter{
		Status:          strings.TrimSpace(c.Query("status")),
		AssignedAgentID: agentID,
		OnlyUnread:      queryBool(c, "unread", false),
	}
	out, err := h.conversations.List(dbcFrom(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappConversationHandler) Unread(c *gin.Context) {
	out, err := h.conversations.Unread(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *WhatsappConversationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	conv, err := h.conversations.Get(dbcFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, conv)
}

// POST /api/whatsapp/conversations/search
func (h *WhatsappConversationHandler) Search(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	conv, err := h.conversations.SearchByPhone(dbcFrom(c), req.Phone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, conv)
}

func (h *WhatsappConversationHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	conv, err := h.conversations.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Conversación creada exitosamente", conv)
}

func (h *WhatsappConversationHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	conv, err := h.conversations.Update(c.Request.Context(), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Conversación actualizada exitosamente", conv)
}

func (h *WhatsappConversationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.conversations.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Conversación eliminada exitosamente", nil)
}

func (h *WhatsappConversationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	conv, err := h.conversations.MarkRead(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Conversación marcada como leída", conv)
}

func (h *WhatsappConversationHandler) Close(c *gin.Context) {
	h.setStatus(c, wa.ConversationClosed, "Conversación cerrada exitosamente")
}

func (h *WhatsappConversationHandler) Archive(c *gin.Context) {
	h.setStatus(c, wa.ConversationArchived, "Conversación archivada exitosamente")
}

func (h *WhatsappConversationHandler) Reopen(c *gin.Context) {
	h.setStatus(c, wa.ConversationOpen, "Conversación reabierta exitosamente")
}

func (h *WhatsappConversationHandler) setStatus(c *gin.Context, status, message string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	conv, err := h.conversations.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, message, conv)
}

// POST /api/whatsapp/conversations/:id/assign
func (h *WhatsappConversationHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		AgentID uuid.UUID `json:"agent_id" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	conv, err := h.conversations.Assign(c.Request.Context(), id, req.AgentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Conversación asignada exitosamente", conv)
}

// POST /api/whatsapp/conversations/:id/link-lead
func (h *WhatsappConversationHandler) LinkLead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		LeadID uuid.UUID `json:"lead_id" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	conv, err := h.conversations.LinkLead(c.Request.Context(), id, req.LeadID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Conversación vinculada al lead exitosamente", conv)
}

// POST /api/whatsapp/sync-chats (bridge webhook)
// The bridge posts one chat per request; {"chats": [...]} syncs a batch.
func (h *WhatsappConversationHandler) SyncChats(c *gin.Context) {
	var req struct {
		services.SyncChat
		Chats []services.SyncChat `json:"chats"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if req.Chats != nil {
		res, err := h.conversations.SyncChats(c.Request.Context(), req.Chats)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OKMessage(c, "Chats sincronizados exitosamente", res)
		return
	}
	conv, err := h.conversations.SyncChat(c.Request.Context(), req.SyncChat)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Chat sincronizado exitosamente", conv)
}

// POST /api/whatsapp/clear-chats (bridge webhook)
func (h *WhatsappConversationHandler) ClearChats(c *gin.Context) {
	res, err := h.conversations.ClearChats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Chats limpiados exitosamente", res)
}

package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	warepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/whatsapp"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/terrenos-crm-backend/internal/pkg/errors"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type ConversationInput struct {
	ContactPhone      *string
	ContactName       *string
	ContactProfilePic *string
	LeadID            *uuid.UUID
	AssignedAgentID   *uuid.UUID
	Status            *string
}

// SyncChat is one chat reported by the bridge after it connects.
type SyncChat struct {
	ContactPhone  string     `json:"contact_phone"`
	ContactName   string     `json:"contact_name"`
	LastMessageAt *time.Time `json:"last_message_at"`
	UnreadCount   *int       `json:"unread_count"`
	Status        string     `json:"status"`
}

type SyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

type ClearResult struct {
	ConversationsDeleted int64 `json:"conversations_deleted"`
	MessagesDeleted      int64 `json:"messages_deleted"`
}

type WhatsappConversationService interface {
	List(dbc dbctx.Context, f warepo.ConversationFilter) ([]*types.WhatsappConversation, error)
	Unread(dbc dbctx.Context) ([]*types.WhatsappConversation, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappConversation, error)
	SearchByPhone(dbc dbctx.Context, phone string) (*types.WhatsappConversation, error)
	Create(ctx context.Context, in ConversationInput) (*types.WhatsappConversation, error)
	Update(ctx context.Context, id uuid.UUID, in ConversationInput) (*types.WhatsappConversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkRead(ctx context.Context, id uuid.UUID) (*types.WhatsappConversation, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.WhatsappConversation, error)
	Assign(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*types.WhatsappConversation, error)
	LinkLead(ctx context.Context, id uuid.UUID, leadID uuid.UUID) (*types.WhatsappConversation, error)
	SyncChat(ctx context.Context, chat SyncChat) (*types.WhatsappConversation, error)
	SyncChats(ctx context.Context, chats []SyncChat) (*SyncResult, error)
	ClearChats(ctx context.Context) (*ClearResult, error)
}

type whatsappConversationService struct {
	db               *gorm.DB
	log              *logger.Logger
	clock            clockwork.Clock
	conversationRepo repos.WhatsappConversationRepo
	messageRepo      repos.WhatsappMessageRepo
	leadRepo         repos.LeadRepo
	userRepo         repos.UserRepo
}

func NewWhatsappConversationService(
	db *gorm.DB,
	log *logger.Logger,
	clock clockwork.Clock,
	conversationRepo repos.WhatsappConversationRepo,
	messageRepo repos.WhatsappMessageRepo,
	leadRepo repos.LeadRepo,
	userRepo repos.UserRepo,
) WhatsappConversationService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &whatsappConversationService{
		db:               db,
		log:              log.With("service", "WhatsappConversationService"),
		clock:            clock,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		leadRepo:         leadRepo,
		userRepo:         userRepo,
	}
}

func errConversationNotFound() error {
	return apierr.NotFound("conversation_not_found", "Conversación no encontrada")
}

func (s *whatsappConversationService) List(dbc dbctx.Context, f warepo.ConversationFilter) ([]*types.WhatsappConversation, error) {
	return s.conversationRepo.List(dbc, f)
}

func (s *whatsappConversationService) Unread(dbc dbctx.Context) ([]*types.WhatsappConversation, error) {
	return s.conversationRepo.ListUnread(dbc)
}

func (s *whatsappConversationService) Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappConversation, error) {
	c, err := s.conversationRepo.GetWithMessages(dbc, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errConversationNotFound()
	}
	return c, nil
}

func (s *whatsappConversationService) SearchByPhone(dbc dbctx.Context, phone string) (*types.WhatsappConversation, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apierr.Field("phone", "El teléfono es obligatorio")
	}
	c, err := s.conversationRepo.GetByPhone(dbc, phone)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apierr.NotFound("conversation_not_found", "No se encontró conversación con ese número")
	}
	return c, nil
}

// checkRefs validates the optional lead and agent references.
func (s *whatsappConversationService) checkRefs(dbc dbctx.Context, verr *apierr.ValidationError, leadID, agentID *uuid.UUID) error {
	if leadID != nil {
		ok, err := s.leadRepo.Exists(dbc, *leadID)
		if err != nil {
			return err
		}
		if !ok {
			verr.Add("lead_id", "El lead seleccionado no existe")
		}
	}
	if agentID != nil {
		u, err := s.userRepo.GetByID(dbc, *agentID)
		if err != nil {
			return err
		}
		if u == nil {
			verr.Add("assigned_agent_id", "El agente seleccionado no existe")
		}
	}
	return nil
}

func (s *whatsappConversationService) Create(ctx context.Context, in ConversationInput) (*types.WhatsappConversation, error) {
	var out *types.WhatsappConversation
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		verr := apierr.NewValidation()
		phone := ""
		if in.ContactPhone != nil {
			phone = strings.TrimSpace(*in.ContactPhone)
		}
		if phone == "" {
			verr.Add("contact_phone", "El teléfono del contacto es obligatorio")
		}
		validatePhoneLen(verr, "contact_phone", &phone)
		if err := s.checkRefs(inner, verr, in.LeadID, in.AssignedAgentID); err != nil {
			return err
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		existing, err := s.conversationRepo.GetByPhone(inner, phone)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Conflict("conversation_exists", "Ya existe una conversación con este contacto").
				WithExtra("data", existing)
		}
		agentID := in.AssignedAgentID
		if agentID == nil {
			agentID = optionalUser(ctx)
		}
		c := &types.WhatsappConversation{
			ContactPhone:    phone,
			LeadID:          in.LeadID,
			AssignedAgentID: agentID,
			Status:          wa.ConversationOpen,
		}
		if in.ContactName != nil {
			c.ContactName = strings.TrimSpace(*in.ContactName)
		}
		if in.ContactProfilePic != nil {
			c.ContactProfilePic = *in.ContactProfilePic
		}
		if _, err := s.conversationRepo.Create(inner, c); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				return apierr.Conflict("conversation_exists", "Ya existe una conversación con este contacto")
			}
			return err
		}
		out, err = s.conversationRepo.GetByID(inner, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *whatsappConversationService) Update(ctx context.Context, id uuid.UUID, in ConversationInput) (*types.WhatsappConversation, error) {
	var out *types.WhatsappConversation
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if err := s.requireConversation(inner, id); err != nil {
			return err
		}
		verr := apierr.NewValidation()
		if err := s.checkRefs(inner, verr, in.LeadID, in.AssignedAgentID); err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.ContactName != nil {
			if len(*in.ContactName) > 255 {
				verr.Add("contact_name", "El nombre no puede superar 255 caracteres")
			}
			updates["contact_name"] = strings.TrimSpace(*in.ContactName)
		}
		if in.ContactProfilePic != nil {
			updates["contact_profile_pic"] = *in.ContactProfilePic
		}
		if in.LeadID != nil {
			updates["lead_id"] = *in.LeadID
		}
		if in.AssignedAgentID != nil {
			updates["assigned_agent_id"] = *in.AssignedAgentID
		}
		if in.Status != nil {
			if !wa.IsValidConversationStatus(*in.Status) {
				verr.Add("status", "El estado de la conversación no es válido")
			}
			updates["status"] = *in.Status
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		if err := s.conversationRepo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		var err error
		out, err = s.conversationRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *whatsappConversationService) requireConversation(dbc dbctx.Context, id uuid.UUID) error {
	c, err := s.conversationRepo.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if c == nil {
		return errConversationNotFound()
	}
	return nil
}

func (s *whatsappConversationService) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if err := s.requireConversation(inner, id); err != nil {
			return err
		}
		if _, err := s.messageRepo.DeleteByConversation(inner, id); err != nil {
			return err
		}
		return s.conversationRepo.Delete(inner, id)
	})
}

// apply updates an existing conversation and returns it reloaded.
func (s *whatsappConversationService) apply(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.WhatsappConversation, error) {
	var out *types.WhatsappConversation
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if err := s.requireConversation(inner, id); err != nil {
			return err
		}
		if err := s.conversationRepo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		var err error
		out, err = s.conversationRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *whatsappConversationService) MarkRead(ctx context.Context, id uuid.UUID) (*types.WhatsappConversation, error) {
	return s.apply(ctx, id, map[string]interface{}{"unread": false, "unread_count": 0})
}

func (s *whatsappConversationService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.WhatsappConversation, error) {
	if !wa.IsValidConversationStatus(status) {
		return nil, apierr.Field("status", "El estado de la conversación no es válido")
	}
	return s.apply(ctx, id, map[string]interface{}{"status": status})
}

func (s *whatsappConversationService) Assign(ctx context.Context, id uuid.UUID, agentID uuid.UUID) (*types.WhatsappConversation, error) {
	if agentID == uuid.Nil {
		return nil, apierr.Field("agent_id", "El agente es obligatorio")
	}
	u, err := s.userRepo.GetByID(dbctx.Context{Ctx: ctx}, agentID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.Field("agent_id", "El agente seleccionado no existe")
	}
	return s.apply(ctx, id, map[string]interface{}{"assigned_agent_id": agentID})
}

func (s *whatsappConversationService) LinkLead(ctx context.Context, id uuid.UUID, leadID uuid.UUID) (*types.WhatsappConversation, error) {
	if leadID == uuid.Nil {
		return nil, apierr.Field("lead_id", "El lead es obligatorio")
	}
	ok, err := s.leadRepo.Exists(dbctx.Context{Ctx: ctx}, leadID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Field("lead_id", "El lead seleccionado no existe")
	}
	return s.apply(ctx, id, map[string]interface{}{"lead_id": leadID})
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

func validateSyncChat(verr *apierr.ValidationError, prefix string, c SyncChat) {
	field := func(name string) string { return prefix + name }
	phone := strings.TrimSpace(c.ContactPhone)
	switch {
	case phone == "":
		verr.Add(field("contact_phone"), "El teléfono del contacto es obligatorio")
	case len(phone) < 8 || len(phone) > 20:
		verr.Add(field("contact_phone"), "El teléfono debe tener entre 8 y 20 caracteres")
	default:
		digits := nonDigits.ReplaceAllString(phone, "")
		if len(digits) < 8 || len(digits) > 20 {
			verr.Add(field("contact_phone"), "Número de teléfono inválido")
		}
	}
	if strings.TrimSpace(c.ContactName) == "" {
		verr.Add(field("contact_name"), "El nombre del contacto es obligatorio")
	} else if len(c.ContactName) > 255 {
		verr.Add(field("contact_name"), "El nombre no puede superar 255 caracteres")
	}
	if c.UnreadCount != nil && *c.UnreadCount < 0 {
		verr.Add(field("unread_count"), "El contador de no leídos no puede ser negativo")
	}
	if c.Status != "" && wa.StatusFromSync(c.Status) == "" {
		verr.Add(field("status"), "El estado del chat no es válido")
	}
}

// SyncChat upserts a single chat pushed by the bridge and returns the stored
// conversation.
func (s *whatsappConversationService) SyncChat(ctx context.Context, chat SyncChat) (*types.WhatsappConversation, error) {
	verr := apierr.NewValidation()
	validateSyncChat(verr, "", chat)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var id uuid.UUID
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		var err error
		id, _, err = s.upsertSyncChat(inner, chat)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

// SyncChats upserts the bridge's chat list by phone. The whole batch is
// rejected when any item is invalid.
func (s *whatsappConversationService) SyncChats(ctx context.Context, chats []SyncChat) (*SyncResult, error) {
	verr := apierr.NewValidation()
	if len(chats) == 0 {
		verr.Add("chats", "Debe enviar al menos un chat")
	}
	for i, c := range chats {
		validateSyncChat(verr, fmt.Sprintf("chats.%d.", i), c)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	res := &SyncResult{}
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		for _, c := range chats {
			_, created, err := s.upsertSyncChat(inner, c)
			if err != nil {
				return err
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
			res.Synced++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Chats synced", "synced", res.Synced, "created", res.Created, "updated", res.Updated)
	return res, nil
}

func (s *whatsappConversationService) upsertSyncChat(dbc dbctx.Context, c SyncChat) (uuid.UUID, bool, error) {
	phone := strings.TrimSpace(c.ContactPhone)
	unread := 0
	if c.UnreadCount != nil {
		unread = *c.UnreadCount
	}
	status := wa.ConversationOpen
	if c.Status != "" {
		status = wa.StatusFromSync(c.Status)
	}
	lastAt := s.clock.Now().UTC()
	if c.LastMessageAt != nil {
		lastAt = c.LastMessageAt.UTC()
	}

	existing, err := s.conversationRepo.GetByPhone(dbc, phone)
	if err != nil {
		return uuid.Nil, false, err
	}
	if existing == nil {
		created, err := s.conversationRepo.Create(dbc, &types.WhatsappConversation{
			ContactPhone:  phone,
			ContactName:   strings.TrimSpace(c.ContactName),
			Status:        status,
			Unread:        unread > 0,
			UnreadCount:   unread,
			LastMessageAt: &lastAt,
		})
		if err != nil {
			return uuid.Nil, false, err
		}
		return created.ID, true, nil
	}
	err = s.conversationRepo.UpdateFields(dbc, existing.ID, map[string]interface{}{
		"contact_name":    strings.TrimSpace(c.ContactName),
		"status":          status,
		"unread":          unread > 0,
		"unread_count":    unread,
		"last_message_at": lastAt,
	})
	return existing.ID, false, err
}

func (s *whatsappConversationService) ClearChats(ctx context.Context) (*ClearResult, error) {
	res := &ClearResult{}
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		n, err := s.messageRepo.DeleteAll(inner)
		if err != nil {
			return err
		}
		res.MessagesDeleted = n
		n, err = s.conversationRepo.DeleteAll(inner)
		if err != nil {
			return err
		}
		res.ConversationsDeleted = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Chats cleared", "conversations_deleted", res.ConversationsDeleted, "messages_deleted", res.MessagesDeleted)
	return res, nil
}

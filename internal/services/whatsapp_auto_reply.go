package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	warepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/whatsapp"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pointers"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const (
	msgGreetingWithKeyword = "Un mensaje de saludo no debe tener palabra clave"
	msgKeywordRequired     = "Debe especificar una palabra clave para respuestas automáticas"
)

type AutoReplyInput struct {
	TriggerKeyword *string
	ReplyMessage   *string
	IsActive       *bool
	IsGreeting     *bool
	Priority       *int
}

type WhatsappAutoReplyService interface {
	List(dbc dbctx.Context, f warepo.AutoReplyFilter) ([]*types.WhatsappAutoReply, error)
	Active(dbc dbctx.Context) ([]*types.WhatsappAutoReply, error)
	Keywords(dbc dbctx.Context) ([]*types.WhatsappAutoReply, error)
	Greeting(dbc dbctx.Context) (*types.WhatsappAutoReply, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappAutoReply, error)
	Create(ctx context.Context, in AutoReplyInput) (*types.WhatsappAutoReply, error)
	Update(ctx context.Context, id uuid.UUID, in AutoReplyInput) (*types.WhatsappAutoReply, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*types.WhatsappAutoReply, error)
	SetPriority(ctx context.Context, id uuid.UUID, priority int) (*types.WhatsappAutoReply, error)
	BulkToggle(ctx context.Context, ids []uuid.UUID, active bool) (int64, error)
	// FindMatch returns the reply for an incoming text, or nil when none applies.
	FindMatch(dbc dbctx.Context, message string) (*types.WhatsappAutoReply, error)
}

type whatsappAutoReplyService struct {
	db            *gorm.DB
	log           *logger.Logger
	autoReplyRepo repos.WhatsappAutoReplyRepo
}

func NewWhatsappAutoReplyService(db *gorm.DB, log *logger.Logger, autoReplyRepo repos.WhatsappAutoReplyRepo) WhatsappAutoReplyService {
	return &whatsappAutoReplyService{
		db:            db,
		log:           log.With("service", "WhatsappAutoReplyService"),
		autoReplyRepo: autoReplyRepo,
	}
}

func errAutoReplyNotFound() error {
	return apierr.NotFound("auto_reply_not_found", "Respuesta automática no encontrada")
}

func (s *whatsappAutoReplyService) List(dbc dbctx.Context, f warepo.AutoReplyFilter) ([]*types.WhatsappAutoReply, error) {
	return s.autoReplyRepo.List(dbc, f)
}

func (s *whatsappAutoReplyService) Active(dbc dbctx.Context) ([]*types.WhatsappAutoReply, error) {
	active := true
	return s.autoReplyRepo.List(dbc, warepo.AutoReplyFilter{IsActive: &active})
}

func (s *whatsappAutoReplyService) Keywords(dbc dbctx.Context) ([]*types.WhatsappAutoReply, error) {
	return s.autoReplyRepo.ListKeywordReplies(dbc)
}

func (s *whatsappAutoReplyService) Greeting(dbc dbctx.Context) (*types.WhatsappAutoReply, error) {
	g, err := s.autoReplyRepo.Greeting(dbc)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apierr.NotFound("greeting_not_found", "No hay mensaje de saludo configurado")
	}
	return g, nil
}

func (s *whatsappAutoReplyService) Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappAutoReply, error) {
	a, err := s.autoReplyRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errAutoReplyNotFound()
	}
	return a, nil
}

func validatePriority(verr *apierr.ValidationError, p *int) {
	if p != nil && (*p < 0 || *p > wa.MaxAutoReplyPriority) {
		verr.Add("priority", "La prioridad debe estar entre 0 y 100")
	}
}

func validateKeywordLen(verr *apierr.ValidationError, kw *string) {
	if kw != nil && len(*kw) > 255 {
		verr.Add("trigger_keyword", "La palabra clave no puede superar 255 caracteres")
	}
}

// greetingRule enforces that greetings carry no keyword and every other
// reply carries one.
func greetingRule(isGreeting bool, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if isGreeting && keyword != "" {
		return apierr.Field("trigger_keyword", msgGreetingWithKeyword)
	}
	if !isGreeting && keyword == "" {
		return apierr.Field("trigger_keyword", msgKeywordRequired)
	}
	return nil
}

func (s *whatsappAutoReplyService) Create(ctx context.Context, in AutoReplyInput) (*types.WhatsappAutoReply, error) {
	verr := apierr.NewValidation()
	if in.ReplyMessage == nil || strings.TrimSpace(*in.ReplyMessage) == "" {
		verr.Add("reply_message", "El mensaje de respuesta es obligatorio")
	}
	validateKeywordLen(verr, in.TriggerKeyword)
	validatePriority(verr, in.Priority)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	a := &types.WhatsappAutoReply{
		TriggerKeyword: pointers.Trimmed(in.TriggerKeyword),
		ReplyMessage:   *in.ReplyMessage,
		IsActive:       true,
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	if in.IsGreeting != nil {
		a.IsGreeting = *in.IsGreeting
	}
	if in.Priority != nil {
		a.Priority = *in.Priority
	}
	if err := greetingRule(a.IsGreeting, a.Keyword()); err != nil {
		return nil, err
	}
	if _, err := s.autoReplyRepo.Create(dbctx.Context{Ctx: ctx}, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *whatsappAutoReplyService) Update(ctx context.Context, id uuid.UUID, in AutoReplyInput) (*types.WhatsappAutoReply, error) {
	var out *types.WhatsappAutoReply
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		a, err := s.autoReplyRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if a == nil {
			return errAutoReplyNotFound()
		}
		verr := apierr.NewValidation()
		validateKeywordLen(verr, in.TriggerKeyword)
		validatePriority(verr, in.Priority)
		if in.ReplyMessage != nil && strings.TrimSpace(*in.ReplyMessage) == "" {
			verr.Add("reply_message", "El mensaje de respuesta es obligatorio")
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		isGreeting := a.IsGreeting
		keyword := a.Keyword()
		if in.IsGreeting != nil {
			isGreeting = *in.IsGreeting
			updates["is_greeting"] = isGreeting
		}
		if in.TriggerKeyword != nil {
			kw := pointers.Trimmed(in.TriggerKeyword)
			keyword = ""
			if kw != nil {
				keyword = *kw
			}
			updates["trigger_keyword"] = kw
		}
		if err := greetingRule(isGreeting, keyword); err != nil {
			return err
		}
		if in.ReplyMessage != nil {
			updates["reply_message"] = *in.ReplyMessage
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if in.Priority != nil {
			updates["priority"] = *in.Priority
		}
		if err := s.autoReplyRepo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		out, err = s.autoReplyRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *whatsappAutoReplyService) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if _, err := s.Get(inner, id); err != nil {
			return err
		}
		return s.autoReplyRepo.Delete(inner, id)
	})
}

func (s *whatsappAutoReplyService) set(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.WhatsappAutoReply, error) {
	var out *types.WhatsappAutoReply
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if _, err := s.Get(inner, id); err != nil {
			return err
		}
		if err := s.autoReplyRepo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		var err error
		out, err = s.autoReplyRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *whatsappAutoReplyService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*types.WhatsappAutoReply, error) {
	return s.set(ctx, id, map[string]interface{}{"is_active": active})
}

func (s *whatsappAutoReplyService) SetPriority(ctx context.Context, id uuid.UUID, priority int) (*types.WhatsappAutoReply, error) {
	verr := apierr.NewValidation()
	validatePriority(verr, &priority)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.set(ctx, id, map[string]interface{}{"priority": priority})
}

func (s *whatsappAutoReplyService) BulkToggle(ctx context.Context, ids []uuid.UUID, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, apierr.Field("ids", "Debe enviar al menos una respuesta automática")
	}
	var n int64
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		verr := apierr.NewValidation()
		for _, id := range ids {
			a, err := s.autoReplyRepo.GetByID(inner, id)
			if err != nil {
				return err
			}
			if a == nil {
				verr.Add("ids", "La respuesta automática "+id.String()+" no existe")
			}
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		var err error
		n, err = s.autoReplyRepo.SetActive(inner, ids, active)
		return err
	})
	return n, err
}

func (s *whatsappAutoReplyService) FindMatch(dbc dbctx.Context, message string) (*types.WhatsappAutoReply, error) {
	candidates, err := s.autoReplyRepo.ListKeywordReplies(dbc)
	if err != nil {
		return nil, err
	}
	return MatchAutoReply(message, candidates), nil
}

// MatchAutoReply picks the reply for message from candidates, which must be
// ordered by priority descending. The first candidate whose keyword equals or
// is contained in the message wins.
func MatchAutoReply(message string, candidates []*types.WhatsappAutoReply) *types.WhatsappAutoReply {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return nil
	}
	for _, c := range candidates {
		kw := normalizedKeyword(c)
		if kw == "" {
			continue
		}
		if kw == msg || strings.Contains(msg, kw) {
			return c
		}
	}
	return nil
}

func normalizedKeyword(a *types.WhatsappAutoReply) string {
	if a == nil || !a.IsActive || a.IsGreeting {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(a.Keyword()))
}

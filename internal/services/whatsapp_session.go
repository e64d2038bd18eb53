package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type SessionInput struct {
	SessionID   *string
	PhoneNumber *string
	AgentID     *uuid.UUID
	Status      *string
}

type WhatsappSessionService interface {
	List(dbc dbctx.Context) ([]*types.WhatsappSession, error)
	Active(dbc dbctx.Context) ([]*types.WhatsappSession, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappSession, error)
	Create(ctx context.Context, in SessionInput) (*types.WhatsappSession, error)
	Update(ctx context.Context, id uuid.UUID, in SessionInput) (*types.WhatsappSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetQR(ctx context.Context, id uuid.UUID, qr string) (*types.WhatsappSession, error)
	GetQR(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappSession, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.WhatsappSession, error)
}

type whatsappSessionService struct {
	db          *gorm.DB
	log         *logger.Logger
	clock       clockwork.Clock
	sessionRepo repos.WhatsappSessionRepo
	notifier    WhatsappNotifier
}

func NewWhatsappSessionService(
	db *gorm.DB,
	log *logger.Logger,
	clock clockwork.Clock,
	sessionRepo repos.WhatsappSessionRepo,
	notifier WhatsappNotifier,
) WhatsappSessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if notifier == nil {
		notifier = NewWhatsappNotifier(nil)
	}
	return &whatsappSessionService{
		db:          db,
		log:         log.With("service", "WhatsappSessionService"),
		clock:       clock,
		sessionRepo: sessionRepo,
		notifier:    notifier,
	}
}

func errSessionNotFound() error {
	return apierr.NotFound("session_not_found", "Sesión no encontrada")
}

func (s *whatsappSessionService) List(dbc dbctx.Context) ([]*types.WhatsappSession, error) {
	return s.sessionRepo.List(dbc)
}

func (s *whatsappSessionService) Active(dbc dbctx.Context) ([]*types.WhatsappSession, error) {
	return s.sessionRepo.ListConnected(dbc)
}

func (s *whatsappSessionService) Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappSession, error) {
	sess, err := s.sessionRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errSessionNotFound()
	}
	return sess, nil
}

func validatePhoneLen(verr *apierr.ValidationError, field string, phone *string) {
	if phone != nil && len(*phone) > 20 {
		verr.Add(field, "El número no puede superar 20 caracteres")
	}
}

func (s *whatsappSessionService) Create(ctx context.Context, in SessionInput) (*types.WhatsappSession, error) {
	var out *types.WhatsappSession
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		verr := apierr.NewValidation()
		sessionID := ""
		if in.SessionID != nil {
			sessionID = strings.TrimSpace(*in.SessionID)
		}
		if sessionID == "" {
			verr.Add("session_id", "El session_id es obligatorio")
		} else if exists, err := s.sessionRepo.SessionIDExists(inner, sessionID, nil); err != nil {
			return err
		} else if exists {
			verr.Add("session_id", "El session_id ya está registrado")
		}
		validatePhoneLen(verr, "phone_number", in.PhoneNumber)
		if err := verr.OrNil(); err != nil {
			return err
		}
		agentID := in.AgentID
		if agentID == nil {
			agentID = optionalUser(ctx)
		}
		sess := &types.WhatsappSession{
			SessionID: sessionID,
			Status:    wa.SessionDisconnected,
			AgentID:   agentID,
		}
		if in.PhoneNumber != nil {
			sess.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
		}
		if _, err := s.sessionRepo.Create(inner, sess); err != nil {
			return conflictOr(err, "session_id", "El session_id ya está registrado")
		}
		found, err := s.sessionRepo.GetByID(inner, sess.ID)
		if err != nil {
			return err
		}
		out = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *whatsappSessionService) Update(ctx context.Context, id uuid.UUID, in SessionInput) (*types.WhatsappSession, error) {
	var out *types.WhatsappSession
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		sess, err := s.sessionRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return errSessionNotFound()
		}
		verr := apierr.NewValidation()
		updates := map[string]interface{}{}
		if in.SessionID != nil {
			sid := strings.TrimSpace(*in.SessionID)
			if sid == "" {
				verr.Add("session_id", "El session_id es obligatorio")
			} else if exists, err := s.sessionRepo.SessionIDExists(inner, sid, &id); err != nil {
				return err
			} else if exists {
				verr.Add("session_id", "El session_id ya está registrado")
			}
			updates["session_id"] = sid
		}
		validatePhoneLen(verr, "phone_number", in.PhoneNumber)
		if in.PhoneNumber != nil {
			updates["phone_number"] = strings.TrimSpace(*in.PhoneNumber)
		}
		if in.Status != nil {
			if !wa.IsValidSessionStatus(*in.Status) {
				verr.Add("status", "El estado de la sesión no es válido")
			}
			updates["status"] = *in.Status
		}
		if in.AgentID != nil {
			updates["agent_id"] = *in.AgentID
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		if err := s.sessionRepo.UpdateFields(inner, id, updates); err != nil {
			return conflictOr(err, "session_id", "El session_id ya está registrado")
		}
		out, err = s.sessionRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *whatsappSessionService) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		sess, err := s.sessionRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return errSessionNotFound()
		}
		return s.sessionRepo.Delete(inner, id)
	})
}

func (s *whatsappSessionService) SetQR(ctx context.Context, id uuid.UUID, qr string) (*types.WhatsappSession, error) {
	if strings.TrimSpace(qr) == "" {
		return nil, apierr.Field("qr_code", "El código QR es obligatorio")
	}
	out, err := s.touch(ctx, id, map[string]interface{}{
		"qr_code": qr,
		"status":  wa.SessionQRReady,
	})
	if err != nil {
		return nil, err
	}
	s.notifier.SessionQR(ctx, out)
	return out, nil
}

func (s *whatsappSessionService) GetQR(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappSession, error) {
	sess, err := s.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	if !sess.HasQR() {
		return nil, apierr.NotFound("qr_not_available", "Código QR no disponible")
	}
	return sess, nil
}

func (s *whatsappSessionService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.WhatsappSession, error) {
	if !wa.IsValidSessionStatus(status) {
		return nil, apierr.Field("status", "El estado de la sesión no es válido")
	}
	out, err := s.touch(ctx, id, map[string]interface{}{"status": status})
	if err != nil {
		return nil, err
	}
	s.notifier.SessionStatus(ctx, out)
	return out, nil
}

// touch applies updates plus last_activity and returns the fresh row.
func (s *whatsappSessionService) touch(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.WhatsappSession, error) {
	var out *types.WhatsappSession
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		sess, err := s.sessionRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return errSessionNotFound()
		}
		updates["last_activity"] = s.clock.Now().UTC()
		if err := s.sessionRepo.UpdateFields(inner, id, updates); err != nil {
			return err
		}
		out, err = s.sessionRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

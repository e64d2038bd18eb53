package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const reminderBatch = 200

type SeguimientoInput struct {
	NegocioID          uuid.UUID
	Tipo               string
	Descripcion        string
	FechaSeguimiento   *time.Time
	ProximoSeguimiento *time.Time
}

type SeguimientoService interface {
	Tipos() []string
	Pendientes(dbc dbctx.Context, asesorID *uuid.UUID) ([]*types.Seguimiento, error)
	ListByNegocio(dbc dbctx.Context, negocioID uuid.UUID) ([]*types.Seguimiento, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Seguimiento, error)
	Create(ctx context.Context, in SeguimientoInput) (*types.Seguimiento, error)
	Update(ctx context.Context, id uuid.UUID, in SeguimientoInput) (*types.Seguimiento, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarcarRecordatorio(ctx context.Context, id uuid.UUID) (*types.Seguimiento, error)
	// SendDueReminders notifies asesores of follow-ups scheduled for today
	// and marks them reminded. It returns how many were sent.
	SendDueReminders(ctx context.Context) (int, error)
}

type seguimientoService struct {
	db              *gorm.DB
	log             *logger.Logger
	clock           clockwork.Clock
	seguimientoRepo repos.SeguimientoRepo
	negocioRepo     repos.NegocioRepo
	notifier        CRMNotifier
}

func NewSeguimientoService(
	db *gorm.DB,
	log *logger.Logger,
	clock clockwork.Clock,
	seguimientoRepo repos.SeguimientoRepo,
	negocioRepo repos.NegocioRepo,
	notifier CRMNotifier,
) SeguimientoService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if notifier == nil {
		notifier = NewCRMNotifier(nil)
	}
	return &seguimientoService{
		db:              db,
		log:             log.With("service", "SeguimientoService"),
		clock:           clock,
		seguimientoRepo: seguimientoRepo,
		negocioRepo:     negocioRepo,
		notifier:        notifier,
	}
}

func errSeguimientoNotFound() error {
	return apierr.NotFound("seguimiento_not_found", "Seguimiento no encontrado")
}

func (s *seguimientoService) Tipos() []string { return crm.TiposSeguimiento() }

func (s *seguimientoService) Pendientes(dbc dbctx.Context, asesorID *uuid.UUID) ([]*types.Seguimiento, error) {
	return s.seguimientoRepo.Pendientes(dbc, s.clock.Now(), asesorID)
}

func (s *seguimientoService) ListByNegocio(dbc dbctx.Context, negocioID uuid.UUID) ([]*types.Seguimiento, error) {
	ok, err := s.negocioRepo.Exists(dbc, negocioID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNegocioNotFound()
	}
	return s.seguimientoRepo.ListByNegocio(dbc, negocioID)
}

func (s *seguimientoService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Seguimiento, error) {
	seg, err := s.seguimientoRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, errSeguimientoNotFound()
	}
	return seg, nil
}

func validateSeguimiento(in SeguimientoInput) *apierr.ValidationError {
	verr := apierr.NewValidation()
	if strings.TrimSpace(in.Tipo) == "" {
		verr.Add("tipo", "El tipo de seguimiento es obligatorio")
	} else if !crm.IsValidTipoSeguimiento(in.Tipo) {
		verr.Add("tipo", "El tipo de seguimiento no es válido")
	}
	if strings.TrimSpace(in.Descripcion) == "" {
		verr.Add("descripcion", "La descripción es obligatoria")
	}
	if in.FechaSeguimiento == nil {
		verr.Add("fecha_seguimiento", "La fecha de seguimiento es obligatoria")
	} else if in.ProximoSeguimiento != nil && truncateDay(*in.ProximoSeguimiento).Before(truncateDay(*in.FechaSeguimiento)) {
		verr.Add("proximo_seguimiento", "El próximo seguimiento debe ser posterior a la fecha actual")
	}
	return verr
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func proximoDate(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := datatypes.Date(truncateDay(*t))
	return &d
}

func (s *seguimientoService) Create(ctx context.Context, in SeguimientoInput) (*types.Seguimiento, error) {
	asesorID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Seguimiento
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		verr := validateSeguimiento(in)
		if in.NegocioID == uuid.Nil {
			verr.Add("negocio_id", "El negocio es obligatorio")
		} else if ok, err := s.negocioRepo.Exists(inner, in.NegocioID); err != nil {
			return err
		} else if !ok {
			verr.Add("negocio_id", "El negocio seleccionado no existe")
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		seg := &types.Seguimiento{
			NegocioID:           in.NegocioID,
			Tipo:                in.Tipo,
			Descripcion:         strings.TrimSpace(in.Descripcion),
			FechaSeguimiento:    in.FechaSeguimiento.UTC(),
			ProximoSeguimiento:  proximoDate(in.ProximoSeguimiento),
			RecordatorioEnviado: false,
			AsesorID:            &asesorID,
		}
		if _, err := s.seguimientoRepo.Create(inner, seg); err != nil {
			return err
		}
		found, err := s.seguimientoRepo.GetByID(inner, seg.ID)
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

func (s *seguimientoService) Update(ctx context.Context, id uuid.UUID, in SeguimientoInput) (*types.Seguimiento, error) {
	if err := validateSeguimiento(in).OrNil(); err != nil {
		return nil, err
	}
	var out *types.Seguimiento
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		seg, err := s.seguimientoRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if seg == nil {
			return errSeguimientoNotFound()
		}
		if err := s.seguimientoRepo.UpdateFields(inner, id, map[string]interface{}{
			"tipo":                in.Tipo,
			"descripcion":         strings.TrimSpace(in.Descripcion),
			"fecha_seguimiento":   in.FechaSeguimiento.UTC(),
			"proximo_seguimiento": proximoDate(in.ProximoSeguimiento),
		}); err != nil {
			return err
		}
		out, err = s.seguimientoRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *seguimientoService) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		seg, err := s.seguimientoRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if seg == nil {
			return errSeguimientoNotFound()
		}
		return s.seguimientoRepo.Delete(inner, id)
	})
}

func (s *seguimientoService) MarcarRecordatorio(ctx context.Context, id uuid.UUID) (*types.Seguimiento, error) {
	var out *types.Seguimiento
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		seg, err := s.seguimientoRepo.GetByID(inner, id)
		if err != nil {
			return err
		}
		if seg == nil {
			return errSeguimientoNotFound()
		}
		if err := s.seguimientoRepo.MarkReminded(inner, []uuid.UUID{id}); err != nil {
			return err
		}
		seg.RecordatorioEnviado = true
		out = seg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *seguimientoService) SendDueReminders(ctx context.Context) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	due, err := s.seguimientoRepo.DueOn(dbc, s.clock.Now(), reminderBatch)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, 0, len(due))
	for _, seg := range due {
		s.notifier.Recordatorio(ctx, seg)
		ids = append(ids, seg.ID)
	}
	if err := s.seguimientoRepo.MarkReminded(dbc, ids); err != nil {
		return 0, err
	}
	s.log.Info("Follow-up reminders sent", "count", len(ids))
	return len(ids), nil
}

package crm

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type SeguimientoRepo interface {
	Create(dbc dbctx.Context, s *types.Seguimiento) (*types.Seguimiento, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Seguimiento, error)
	ListByNegocio(dbc dbctx.Context, negocioID uuid.UUID) ([]*types.Seguimiento, error)
	Pendientes(dbc dbctx.Context, today time.Time, asesorID *uuid.UUID) ([]*types.Seguimiento, error)
	DueOn(dbc dbctx.Context, day time.Time, limit int) ([]*types.Seguimiento, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	MarkReminded(dbc dbctx.Context, ids []uuid.UUID) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteByNegocioIDs(dbc dbctx.Context, negocioIDs []uuid.UUID) error
}

type seguimientoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeguimientoRepo(db *gorm.DB, baseLog *logger.Logger) SeguimientoRepo {
	repoLog := baseLog.With("repo", "SeguimientoRepo")
	return &seguimientoRepo{db: db, log: repoLog}
}

// dateOnly truncates t to midnight UTC, the form proximo_seguimiento is stored in.
func dateOnly(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func (r *seguimientoRepo) Create(dbc dbctx.Context, s *types.Seguimiento) (*types.Seguimiento, error) {
	if s == nil {
		return nil, errors.New("seguimiento is nil")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *seguimientoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Seguimiento, error) {
	var s types.Seguimiento
	err := dbc.DB(r.db).
		Preload("Asesor").
		Preload("Negocio.Lead").
		Preload("Negocio.Terreno").
		Where("id = ?", id).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *seguimientoRepo) ListByNegocio(dbc dbctx.Context, negocioID uuid.UUID) ([]*types.Seguimiento, error) {
	var out []*types.Seguimiento
	if err := dbc.DB(r.db).
		Preload("Asesor").
		Preload("Negocio.Lead").
		Where("negocio_id = ?", negocioID).
		Order("fecha_seguimiento DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Pendientes returns follow-ups scheduled for today or later whose reminder
// has not gone out, soonest first.
func (r *seguimientoRepo) Pendientes(dbc dbctx.Context, today time.Time, asesorID *uuid.UUID) ([]*types.Seguimiento, error) {
	q := dbc.DB(r.db).
		Where("proximo_seguimiento IS NOT NULL").
		Where("proximo_seguimiento >= ?", dateOnly(today)).
		Where("recordatorio_enviado = ?", false)
	if asesorID != nil {
		q = q.Where("asesor_id = ?", *asesorID)
	}
	var out []*types.Seguimiento
	if err := q.
		Preload("Asesor").
		Preload("Negocio.Lead").
		Preload("Negocio.Terreno").
		Order("proximo_seguimiento ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DueOn returns unreminded follow-ups scheduled for day, oldest first.
func (r *seguimientoRepo) DueOn(dbc dbctx.Context, day time.Time, limit int) ([]*types.Seguimiento, error) {
	q := dbc.DB(r.db).
		Where("proximo_seguimiento = ?", dateOnly(day)).
		Where("recordatorio_enviado = ?", false).
		Preload("Negocio.Lead").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Seguimiento
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *seguimientoRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Seguimiento{}).Where("id = ?", id).Updates(updates).Error
}

func (r *seguimientoRepo) MarkReminded(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.Seguimiento{}).
		Where("id IN ?", ids).
		Update("recordatorio_enviado", true).Error
}

func (r *seguimientoRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Seguimiento{}).Error
}

func (r *seguimientoRepo) DeleteByNegocioIDs(dbc dbctx.Context, negocioIDs []uuid.UUID) error {
	if len(negocioIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("negocio_id IN ?", negocioIDs).Delete(&types.Seguimiento{}).Error
}

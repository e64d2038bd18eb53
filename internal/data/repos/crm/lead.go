package crm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/scope"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type LeadFilter struct {
	AsesorID *uuid.UUID
	Buscar   string
}

type LeadRepo interface {
	Create(dbc dbctx.Context, lead *types.Lead) (*types.Lead, error)
	List(dbc dbctx.Context, f LeadFilter, p pagination.Params) (*pagination.Result[*types.Lead], error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error)
	GetDetail(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error)
	Exists(dbc dbctx.Context, id uuid.UUID) (bool, error)
	CarnetExists(dbc dbctx.Context, carnet string, exclude *uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type leadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo {
	repoLog := baseLog.With("repo", "LeadRepo")
	return &leadRepo{db: db, log: repoLog}
}

func (r *leadRepo) Create(dbc dbctx.Context, lead *types.Lead) (*types.Lead, error) {
	if lead == nil {
		return nil, errors.New("lead is nil")
	}
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(lead).Error; err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *leadRepo) List(dbc dbctx.Context, f LeadFilter, p pagination.Params) (*pagination.Result[*types.Lead], error) {
	q := dbc.DB(r.db).Model(&types.Lead{}).Where("estado = ?", true)
	if f.AsesorID != nil {
		q = q.Where("asesor_id = ?", *f.AsesorID)
	}
	q = scope.ContainsFold(q, f.Buscar, "nombre", "carnet", "numero_1")
	return pagination.Paginate[*types.Lead](q, p, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Asesor").Preload("Negocio.Terreno").Order("created_at DESC")
	})
}

func (r *leadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error) {
	var l types.Lead
	err := dbc.DB(r.db).Preload("Asesor").Preload("Negocio.Terreno").Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetDetail loads the lead with its deal, the deal's plot hierarchy and the
// follow-up history (newest first).
func (r *leadRepo) GetDetail(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error) {
	var l types.Lead
	err := dbc.DB(r.db).
		Preload("Asesor").
		Preload("Negocio.Terreno.Proyecto").
		Preload("Negocio.Terreno.Categoria").
		Preload("Negocio.Terreno.Cuadra.Barrio").
		Preload("Negocio.Seguimientos", func(db *gorm.DB) *gorm.DB {
			return db.Order("fecha_seguimiento DESC")
		}).
		Preload("Negocio.Seguimientos.Asesor").
		Where("id = ?", id).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *leadRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := dbc.DB(r.db).Model(&types.Lead{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *leadRepo) CarnetExists(dbc dbctx.Context, carnet string, exclude *uuid.UUID) (bool, error) {
	q := dbc.DB(r.db).Model(&types.Lead{}).Where("carnet = ?", carnet)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *leadRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Lead{}).Where("id = ?", id).Updates(updates).Error
}

func (r *leadRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Lead{}).Error
}

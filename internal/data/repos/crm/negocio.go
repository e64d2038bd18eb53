package crm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type NegocioFilter struct {
	AsesorID    *uuid.UUID
	Etapa       string
	SoloActivos bool
}

// Outcome selects a slice of the pipeline for counting.
type Outcome int

const (
	OutcomeAll Outcome = iota
	OutcomeActivos
	OutcomeGanados
	OutcomePerdidos
)

type NegocioRepo interface {
	Create(dbc dbctx.Context, n *types.Negocio) (*types.Negocio, error)
	List(dbc dbctx.Context, f NegocioFilter, p pagination.Params) (*pagination.Result[*types.Negocio], error)
	ListByEtapas(dbc dbctx.Context, etapas []string, asesorID *uuid.UUID) ([]*types.Negocio, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Negocio, error)
	GetDetail(dbc dbctx.Context, id uuid.UUID) (*types.Negocio, error)
	GetByLeadID(dbc dbctx.Context, leadID uuid.UUID) (*types.Negocio, error)
	Exists(dbc dbctx.Context, id uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	RenameEtapa(dbc dbctx.Context, embudoID uuid.UUID, from, to string) (int64, error)
	ClearEmbudo(dbc dbctx.Context, embudoID uuid.UUID) error
	CountByEtapa(dbc dbctx.Context, etapa string) (int64, error)
	IDsByEtapa(dbc dbctx.Context, etapa string) ([]uuid.UUID, error)
	Count(dbc dbctx.Context, asesorID *uuid.UUID, o Outcome) (int64, error)
	SumMontoGanado(dbc dbctx.Context, asesorID *uuid.UUID) (float64, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type negocioRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNegocioRepo(db *gorm.DB, baseLog *logger.Logger) NegocioRepo {
	repoLog := baseLog.With("repo", "NegocioRepo")
	return &negocioRepo{db: db, log: repoLog}
}

func activos(q *gorm.DB) *gorm.DB {
	return q.Where("etapa NOT IN ?", []string{crm.EtapaCierre, crm.EtapaPerdido})
}

func outcomeScope(o Outcome) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		switch o {
		case OutcomeActivos:
			return activos(q)
		case OutcomeGanados:
			return q.Where("etapa = ?", crm.EtapaCierre)
		case OutcomePerdidos:
			return q.Where("etapa = ?", crm.EtapaPerdido)
		default:
			return q
		}
	}
}

func (r *negocioRepo) Create(dbc dbctx.Context, n *types.Negocio) (*types.Negocio, error) {
	if n == nil {
		return nil, errors.New("negocio is nil")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (r *negocioRepo) List(dbc dbctx.Context, f NegocioFilter, p pagination.Params) (*pagination.Result[*types.Negocio], error) {
	q := dbc.DB(r.db).Model(&types.Negocio{})
	if f.AsesorID != nil {
		q = q.Where("asesor_id = ?", *f.AsesorID)
	}
	if f.Etapa != "" {
		q = q.Where("etapa = ?", f.Etapa)
	}
	if f.SoloActivos {
		q = activos(q)
	}
	return pagination.Paginate[*types.Negocio](q, p, func(db *gorm.DB) *gorm.DB {
		return db.
			Preload("Lead").
			Preload("Terreno.Proyecto").
			Preload("Terreno.Categoria").
			Preload("Asesor").
			Preload("Seguimientos").
			Order("created_at DESC")
	})
}

// ListByEtapas returns every deal sitting in one of etapas, newest first.
func (r *negocioRepo) ListByEtapas(dbc dbctx.Context, etapas []string, asesorID *uuid.UUID) ([]*types.Negocio, error) {
	out := []*types.Negocio{}
	if len(etapas) == 0 {
		return out, nil
	}
	q := dbc.DB(r.db).Where("etapa IN ?", etapas)
	if asesorID != nil {
		q = q.Where("asesor_id = ?", *asesorID)
	}
	if err := q.
		Preload("Lead").
		Preload("Terreno.Proyecto").
		Preload("Terreno.Categoria").
		Preload("Asesor").
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *negocioRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Negocio, error) {
	var n types.Negocio
	err := dbc.DB(r.db).
		Preload("Lead").
		Preload("Terreno").
		Preload("Asesor").
		Where("id = ?", id).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *negocioRepo) GetDetail(dbc dbctx.Context, id uuid.UUID) (*types.Negocio, error) {
	var n types.Negocio
	err := dbc.DB(r.db).
		Preload("Lead").
		Preload("Terreno.Proyecto").
		Preload("Terreno.Categoria").
		Preload("Terreno.Cuadra.Barrio").
		Preload("Asesor").
		Preload("Seguimientos", func(db *gorm.DB) *gorm.DB {
			return db.Order("fecha_seguimiento DESC")
		}).
		Preload("Seguimientos.Asesor").
		Where("id = ?", id).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *negocioRepo) GetByLeadID(dbc dbctx.Context, leadID uuid.UUID) (*types.Negocio, error) {
	var n types.Negocio
	err := dbc.DB(r.db).Where("lead_id = ?", leadID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *negocioRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := dbc.DB(r.db).Model(&types.Negocio{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *negocioRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Negocio{}).Where("id = ?", id).Updates(updates).Error
}

// RenameEtapa moves deals linked to the stage, or still carrying its old
// name without a link, over to the new name.
func (r *negocioRepo) RenameEtapa(dbc dbctx.Context, embudoID uuid.UUID, from, to string) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.Negocio{}).
		Where("embudo_id = ? OR (embudo_id IS NULL AND etapa = ?)", embudoID, from).
		Updates(map[string]interface{}{"etapa": to, "embudo_id": embudoID})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *negocioRepo) ClearEmbudo(dbc dbctx.Context, embudoID uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.Negocio{}).
		Where("embudo_id = ?", embudoID).
		Update("embudo_id", nil).Error
}

func (r *negocioRepo) CountByEtapa(dbc dbctx.Context, etapa string) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.Negocio{}).Where("etapa = ?", etapa).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *negocioRepo) IDsByEtapa(dbc dbctx.Context, etapa string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).Model(&types.Negocio{}).Where("etapa = ?", etapa).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *negocioRepo) Count(dbc dbctx.Context, asesorID *uuid.UUID, o Outcome) (int64, error) {
	q := dbc.DB(r.db).Model(&types.Negocio{})
	if asesorID != nil {
		q = q.Where("asesor_id = ?", *asesorID)
	}
	var n int64
	if err := q.Scopes(outcomeScope(o)).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *negocioRepo) SumMontoGanado(dbc dbctx.Context, asesorID *uuid.UUID) (float64, error) {
	q := dbc.DB(r.db).Model(&types.Negocio{}).Scopes(outcomeScope(OutcomeGanados))
	if asesorID != nil {
		q = q.Where("asesor_id = ?", *asesorID)
	}
	var total float64
	if err := q.Select("COALESCE(SUM(monto_estimado), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *negocioRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Negocio{}).Error
}

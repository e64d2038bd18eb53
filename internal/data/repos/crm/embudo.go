package crm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type EmbudoRepo interface {
	Create(dbc dbctx.Context, e *types.Embudo) (*types.Embudo, error)
	List(dbc dbctx.Context, soloActivos bool) ([]*types.Embudo, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Embudo, error)
	GetByNombre(dbc dbctx.Context, nombre string) (*types.Embudo, error)
	NombreExists(dbc dbctx.Context, nombre string, exclude *uuid.UUID) (bool, error)
	CountExisting(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	MaxOrden(dbc dbctx.Context) (int, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SetOrden(dbc dbctx.Context, id uuid.UUID, orden int) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type embudoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbudoRepo(db *gorm.DB, baseLog *logger.Logger) EmbudoRepo {
	repoLog := baseLog.With("repo", "EmbudoRepo")
	return &embudoRepo{db: db, log: repoLog}
}

func (r *embudoRepo) Create(dbc dbctx.Context, e *types.Embudo) (*types.Embudo, error) {
	if e == nil {
		return nil, errors.New("embudo is nil")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (r *embudoRepo) List(dbc dbctx.Context, soloActivos bool) ([]*types.Embudo, error) {
	q := dbc.DB(r.db).Model(&types.Embudo{})
	if soloActivos {
		q = q.Where("activo = ?", true)
	}
	var out []*types.Embudo
	if err := q.Order("orden ASC").Order("nombre ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *embudoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Embudo, error) {
	var e types.Embudo
	err := dbc.DB(r.db).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *embudoRepo) GetByNombre(dbc dbctx.Context, nombre string) (*types.Embudo, error) {
	var e types.Embudo
	err := dbc.DB(r.db).Where("nombre = ?", nombre).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *embudoRepo) NombreExists(dbc dbctx.Context, nombre string, exclude *uuid.UUID) (bool, error) {
	q := dbc.DB(r.db).Model(&types.Embudo{}).Where("nombre = ?", nombre)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *embudoRepo) CountExisting(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := dbc.DB(r.db).Model(&types.Embudo{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *embudoRepo) MaxOrden(dbc dbctx.Context) (int, error) {
	var max int
	if err := dbc.DB(r.db).Model(&types.Embudo{}).Select("COALESCE(MAX(orden), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *embudoRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Embudo{}).Where("id = ?", id).Updates(updates).Error
}

func (r *embudoRepo) SetOrden(dbc dbctx.Context, id uuid.UUID, orden int) error {
	return dbc.DB(r.db).Model(&types.Embudo{}).Where("id = ?", id).Update("orden", orden).Error
}

func (r *embudoRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Embudo{}).Error
}

package inventory

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type ProyectoRepo interface {
	ListByNombre(dbc dbctx.Context) ([]*types.Proyecto, error)
	ListActivosRecientes(dbc dbctx.Context) ([]*types.Proyecto, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Proyecto, error)
}

type proyectoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProyectoRepo(db *gorm.DB, baseLog *logger.Logger) ProyectoRepo {
	return &proyectoRepo{db: db, log: baseLog.With("repo", "ProyectoRepo")}
}

func (r *proyectoRepo) ListByNombre(dbc dbctx.Context) ([]*types.Proyecto, error) {
	var out []*types.Proyecto
	if err := dbc.DB(r.db).Order("nombre ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *proyectoRepo) ListActivosRecientes(dbc dbctx.Context) ([]*types.Proyecto, error) {
	var out []*types.Proyecto
	if err := dbc.DB(r.db).
		Where("estado = ?", inventory.ProyectoActivo).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *proyectoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Proyecto, error) {
	var p types.Proyecto
	err := dbc.DB(r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

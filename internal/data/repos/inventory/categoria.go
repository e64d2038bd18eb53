package inventory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type CategoriaRepo interface {
	ListActivas(dbc dbctx.Context, proyectoID *uuid.UUID) ([]*types.CategoriaTerreno, error)
}

type categoriaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoriaRepo(db *gorm.DB, baseLog *logger.Logger) CategoriaRepo {
	return &categoriaRepo{db: db, log: baseLog.With("repo", "CategoriaRepo")}
}

func (r *categoriaRepo) ListActivas(dbc dbctx.Context, proyectoID *uuid.UUID) ([]*types.CategoriaTerreno, error) {
	q := dbc.DB(r.db).Where("estado = ?", inventory.CategoriaActiva)
	if proyectoID != nil {
		q = q.Where("idproyecto = ?", *proyectoID)
	}
	var out []*types.CategoriaTerreno
	if err := q.Order("nombre ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

package inventory

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/scope"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type TerrenoFilter struct {
	SoloDisponibles bool
	ProyectoID      *uuid.UUID
	CategoriaID     *uuid.UUID
	CuadraID        *uuid.UUID
	Buscar          string
}

// CountFilter narrows Count; nil fields are not applied.
type CountFilter struct {
	ProyectoID uuid.UUID
	Estado     *int
	Condicion  *int
}

type TerrenoCode struct {
	ID        uuid.UUID
	Ubicacion string
}

type TerrenoRepo interface {
	List(dbc dbctx.Context, f TerrenoFilter, p pagination.Params) (*pagination.Result[*types.Terreno], error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Terreno, error)
	Exists(dbc dbctx.Context, id uuid.UUID) (bool, error)
	ListDisponibles(dbc dbctx.Context, proyectoID *uuid.UUID) ([]*types.Terreno, error)
	ListCodes(dbc dbctx.Context, proyectoID uuid.UUID) ([]TerrenoCode, error)
	Count(dbc dbctx.Context, f CountFilter) (int64, error)
}

type terrenoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTerrenoRepo(db *gorm.DB, baseLog *logger.Logger) TerrenoRepo {
	repoLog := baseLog.With("repo", "TerrenoRepo")
	return &terrenoRepo{db: db, log: repoLog}
}

func disponibles(q *gorm.DB) *gorm.DB {
	return q.Where("terrenos.estado = ? AND terrenos.condicion = ?", inventory.EstadoDisponible, inventory.CondicionHabilitado)
}

func (r *terrenoRepo) List(dbc dbctx.Context, f TerrenoFilter, p pagination.Params) (*pagination.Result[*types.Terreno], error) {
	q := dbc.DB(r.db).Model(&types.Terreno{})
	if f.SoloDisponibles {
		q = disponibles(q)
	}
	if f.ProyectoID != nil {
		q = q.Where("idproyecto = ?", *f.ProyectoID)
	}
	if f.CategoriaID != nil {
		q = q.Where("idcategoria = ?", *f.CategoriaID)
	}
	if f.CuadraID != nil {
		q = q.Where("idcuadra = ?", *f.CuadraID)
	}
	q = scope.ContainsFold(q, f.Buscar, "ubicacion", "numero_terreno")
	return pagination.Paginate[*types.Terreno](q, p, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Proyecto").Preload("Categoria").Preload("Cuadra.Barrio").Order("ubicacion ASC")
	})
}

func (r *terrenoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Terreno, error) {
	var t types.Terreno
	err := dbc.DB(r.db).
		Preload("Proyecto").
		Preload("Categoria").
		Preload("Cuadra.Barrio").
		Preload("Documentos").
		Where("id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *terrenoRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := dbc.DB(r.db).Model(&types.Terreno{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *terrenoRepo) ListDisponibles(dbc dbctx.Context, proyectoID *uuid.UUID) ([]*types.Terreno, error) {
	q := disponibles(dbc.DB(r.db).Model(&types.Terreno{}))
	if proyectoID != nil {
		q = q.Where("idproyecto = ?", *proyectoID)
	}
	var out []*types.Terreno
	if err := q.Select("id", "ubicacion", "numero_terreno", "precio_venta").
		Order("ubicacion ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *terrenoRepo) ListCodes(dbc dbctx.Context, proyectoID uuid.UUID) ([]TerrenoCode, error) {
	var out []TerrenoCode
	if err := dbc.DB(r.db).
		Model(&types.Terreno{}).
		Select("id", "ubicacion").
		Where("idproyecto = ?", proyectoID).
		Order("ubicacion ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *terrenoRepo) Count(dbc dbctx.Context, f CountFilter) (int64, error) {
	q := dbc.DB(r.db).Model(&types.Terreno{}).Where("idproyecto = ?", f.ProyectoID)
	if f.Estado != nil {
		q = q.Where("estado = ?", *f.Estado)
	}
	if f.Condicion != nil {
		q = q.Where("condicion = ?", *f.Condicion)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

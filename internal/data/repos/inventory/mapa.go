package inventory

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type BarrioShape struct {
	ID            uuid.UUID
	Nombre        string
	Poligono      datatypes.JSON
	TotalTerrenos int64
}

type CuadraShape struct {
	ID            uuid.UUID
	Nombre        string
	BarrioNombre  *string
	Poligono      datatypes.JSON
	TotalTerrenos int64
}

type TerrenoShape struct {
	ID              uuid.UUID
	NumeroTerreno   *string
	Ubicacion       string
	Superficie      float64
	PrecioVenta     float64
	CuotaInicial    float64
	CuotaMensual    float64
	Estado          int
	Condicion       int
	Poligono        datatypes.JSON
	CategoriaNombre *string
	CategoriaColor  *string
	CuadraNombre    *string
	BarrioNombre    *string
}

type CategoriaCount struct {
	ID            uuid.UUID
	Nombre        string
	Color         string
	TotalTerrenos int64
}

// MapaRepo serves the geometry-bearing reads behind the map views. Rows
// without a polygon are excluded in SQL.
type MapaRepo interface {
	Barrios(dbc dbctx.Context, proyectoID uuid.UUID) ([]BarrioShape, error)
	Cuadras(dbc dbctx.Context, proyectoID uuid.UUID) ([]CuadraShape, error)
	Terrenos(dbc dbctx.Context, proyectoID uuid.UUID, soloDisponibles bool) ([]TerrenoShape, error)
	Categorias(dbc dbctx.Context, proyectoID uuid.UUID) ([]CategoriaCount, error)
}

type mapaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMapaRepo(db *gorm.DB, baseLog *logger.Logger) MapaRepo {
	return &mapaRepo{db: db, log: baseLog.With("repo", "MapaRepo")}
}

func (r *mapaRepo) Barrios(dbc dbctx.Context, proyectoID uuid.UUID) ([]BarrioShape, error) {
	var out []BarrioShape
	err := dbc.DB(r.db).
		Table("barrios AS b").
		Select("b.id, b.nombre, b.poligono, COUNT(t.id) AS total_terrenos").
		Joins("LEFT JOIN cuadras cu ON cu.idbarrio = b.id").
		Joins("LEFT JOIN terrenos t ON t.idcuadra = cu.id AND t.condicion = ? AND t.estado = ?",
			inventory.CondicionHabilitado, inventory.EstadoDisponible).
		Where("b.idproyecto = ? AND b.poligono IS NOT NULL", proyectoID).
		Group("b.id, b.nombre").
		Order("b.nombre ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mapaRepo) Cuadras(dbc dbctx.Context, proyectoID uuid.UUID) ([]CuadraShape, error) {
	var out []CuadraShape
	err := dbc.DB(r.db).
		Table("cuadras AS cu").
		Select("cu.id, cu.nombre, b.nombre AS barrio_nombre, cu.poligono, COUNT(t.id) AS total_terrenos").
		Joins("INNER JOIN barrios b ON cu.idbarrio = b.id").
		Joins("LEFT JOIN terrenos t ON t.idcuadra = cu.id AND t.condicion = ? AND t.estado = ?",
			inventory.CondicionHabilitado, inventory.EstadoDisponible).
		Where("b.idproyecto = ? AND cu.poligono IS NOT NULL", proyectoID).
		Group("cu.id, cu.nombre, b.nombre").
		Order("cu.nombre ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mapaRepo) Terrenos(dbc dbctx.Context, proyectoID uuid.UUID, soloDisponibles bool) ([]TerrenoShape, error) {
	q := dbc.DB(r.db).
		Table("terrenos AS t").
		Select(`t.id, t.numero_terreno, t.ubicacion, t.superficie, t.precio_venta,
			t.cuota_inicial, t.cuota_mensual, t.estado, t.condicion, t.poligono,
			c.nombre AS categoria_nombre, c.color AS categoria_color,
			cu.nombre AS cuadra_nombre, b.nombre AS barrio_nombre`).
		Joins("LEFT JOIN categorias_terrenos c ON t.idcategoria = c.id").
		Joins("LEFT JOIN cuadras cu ON t.idcuadra = cu.id").
		Joins("LEFT JOIN barrios b ON cu.idbarrio = b.id").
		Where("t.idproyecto = ? AND t.condicion = ? AND t.poligono IS NOT NULL",
			proyectoID, inventory.CondicionHabilitado)
	if soloDisponibles {
		q = q.Where("t.estado = ?", inventory.EstadoDisponible)
	}
	var out []TerrenoShape
	if err := q.Order("t.ubicacion ASC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mapaRepo) Categorias(dbc dbctx.Context, proyectoID uuid.UUID) ([]CategoriaCount, error) {
	var out []CategoriaCount
	err := dbc.DB(r.db).
		Table("categorias_terrenos AS c").
		Select("c.id, c.nombre, c.color, COUNT(t.id) AS total_terrenos").
		Joins("LEFT JOIN terrenos t ON t.idcategoria = c.id AND t.condicion = ?", inventory.CondicionHabilitado).
		Where("c.idproyecto = ? AND c.estado = ?", proyectoID, inventory.CategoriaActiva).
		Group("c.id, c.nombre, c.color").
		Order("c.nombre ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

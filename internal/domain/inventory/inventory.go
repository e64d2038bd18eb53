package inventory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Plot states as stored in terrenos.estado.
const (
	EstadoDisponible = 0
	EstadoVendido    = 1
	EstadoReservado  = 2

	// CondicionHabilitado marks plots that are enabled for sale and shown on maps.
	CondicionHabilitado = 1

	CategoriaActiva = 1
	ProyectoActivo  = 1
)

const (
	DefaultCategoriaNombre = "Sin categoría"
	DefaultCategoriaColor  = "#6b7280"
)

func EstadoLabel(estado int) string {
	switch estado {
	case EstadoDisponible:
		return "Disponible"
	case EstadoVendido:
		return "Vendido"
	case EstadoReservado:
		return "Reservado"
	default:
		return "Desconocido"
	}
}

type Proyecto struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Nombre           string          `gorm:"not null;column:nombre" json:"nombre"`
	Descripcion      string          `gorm:"column:descripcion" json:"descripcion"`
	Ubicacion        string          `gorm:"column:ubicacion" json:"ubicacion"`
	FechaLanzamiento *datatypes.Date `gorm:"column:fecha_lanzamiento" json:"fecha_lanzamiento"`
	NumeroLotes      int             `gorm:"column:numero_lotes" json:"numero_lotes"`
	Fotografia       string          `gorm:"column:fotografia" json:"fotografia"`
	Estado           int             `gorm:"not null;column:estado" json:"estado"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (Proyecto) TableName() string { return "proyectos" }

type Barrio struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProyectoID uuid.UUID      `gorm:"type:uuid;index;not null;column:idproyecto" json:"idproyecto"`
	Nombre     string         `gorm:"not null;column:nombre" json:"nombre"`
	Poligono   datatypes.JSON `gorm:"column:poligono" json:"poligono,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (Barrio) TableName() string { return "barrios" }

type Cuadra struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BarrioID  uuid.UUID      `gorm:"type:uuid;index;not null;column:idbarrio" json:"idbarrio"`
	Barrio    *Barrio        `gorm:"foreignKey:BarrioID;references:ID" json:"barrio,omitempty"`
	Nombre    string         `gorm:"not null;column:nombre" json:"nombre"`
	Poligono  datatypes.JSON `gorm:"column:poligono" json:"poligono,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Cuadra) TableName() string { return "cuadras" }

type CategoriaTerreno struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProyectoID uuid.UUID `gorm:"type:uuid;index;not null;column:idproyecto" json:"idproyecto"`
	Nombre     string    `gorm:"not null;column:nombre" json:"nombre"`
	Color      string    `gorm:"column:color" json:"color"`
	Estado     int       `gorm:"not null;column:estado" json:"estado"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (CategoriaTerreno) TableName() string { return "categorias_terrenos" }

type Terreno struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProyectoID    uuid.UUID  `gorm:"type:uuid;index;not null;column:idproyecto" json:"idproyecto"`
	CuadraID      *uuid.UUID `gorm:"type:uuid;index;column:idcuadra" json:"idcuadra"`
	CategoriaID   *uuid.UUID `gorm:"type:uuid;index;column:idcategoria" json:"idcategoria"`
	Ubicacion     string     `gorm:"not null;column:ubicacion" json:"ubicacion"`
	NumeroTerreno string     `gorm:"column:numero_terreno" json:"numero_terreno"`
	Superficie    float64    `gorm:"type:numeric(12,2);column:superficie" json:"superficie"`
	PrecioVenta   float64    `gorm:"type:numeric(12,2);column:precio_venta" json:"precio_venta"`
	CuotaInicial  float64    `gorm:"type:numeric(12,2);column:cuota_inicial" json:"cuota_inicial"`
	CuotaMensual  float64    `gorm:"type:numeric(12,2);column:cuota_mensual" json:"cuota_mensual"`
	Estado        int        `gorm:"not null;index;column:estado" json:"estado"`
	Condicion     int        `gorm:"not null;column:condicion" json:"condicion"`
	// GeoJSON geometry; served through the map endpoints only.
	Poligono datatypes.JSON `gorm:"column:poligono" json:"-"`

	Proyecto   *Proyecto           `gorm:"foreignKey:ProyectoID;references:ID" json:"proyecto,omitempty"`
	Cuadra     *Cuadra             `gorm:"foreignKey:CuadraID;references:ID" json:"cuadra,omitempty"`
	Categoria  *CategoriaTerreno   `gorm:"foreignKey:CategoriaID;references:ID" json:"categoria,omitempty"`
	Documentos []*DocumentoTerreno `gorm:"foreignKey:TerrenoID;references:ID" json:"documentos,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Terreno) TableName() string { return "terrenos" }

func (t *Terreno) Disponible() bool {
	return t != nil && t.Estado == EstadoDisponible && t.Condicion == CondicionHabilitado
}

const (
	OCRPendiente = "pendiente"
	OCRProcesado = "procesado"
	OCRError     = "error"
	OCRSinDatos  = "sin_datos"
)

type DocumentoTerreno struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TerrenoID uuid.UUID `gorm:"type:uuid;index;not null;column:idterreno" json:"idterreno"`
	Nombre    string    `gorm:"column:nombre" json:"nombre"`
	Ruta      string    `gorm:"column:ruta" json:"ruta"`
	EstadoOCR string    `gorm:"column:estado_ocr" json:"estado_ocr"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DocumentoTerreno) TableName() string { return "documentos_terreno" }

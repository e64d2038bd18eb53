package crm

import (
	"time"

	"github.com/google/uuid"
)

const DefaultEmbudoColor = "#6b7280"

// Embudo is one configurable stage of the sales pipeline.
type Embudo struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nombre      string    `gorm:"uniqueIndex;not null;size:255;column:nombre" json:"nombre"`
	Color       string    `gorm:"not null;size:7;column:color" json:"color"`
	Icono       string    `gorm:"size:50;column:icono" json:"icono"`
	Orden       int       `gorm:"not null;index;column:orden" json:"orden"`
	Activo      bool      `gorm:"not null;index;column:activo" json:"activo"`
	Descripcion string    `gorm:"size:500;column:descripcion" json:"descripcion"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`

	NegociosCount *int64 `gorm:"-" json:"negocios_count,omitempty"`
}

func (Embudo) TableName() string { return "embudos" }

func (e *Embudo) ColorCSS() string {
	if e == nil || e.Color == "" {
		return DefaultEmbudoColor
	}
	return e.Color
}

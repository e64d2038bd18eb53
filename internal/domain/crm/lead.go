package crm

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
)

type Lead struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Nombre    string     `gorm:"not null;size:255;column:nombre" json:"nombre"`
	Carnet    string     `gorm:"uniqueIndex;not null;size:50;column:carnet" json:"carnet"`
	Numero1   string     `gorm:"not null;size:20;column:numero_1" json:"numero_1"`
	Numero2   string     `gorm:"size:20;column:numero_2" json:"numero_2"`
	Direccion string     `gorm:"column:direccion" json:"direccion"`
	AsesorID  *uuid.UUID `gorm:"type:uuid;index;column:asesor_id" json:"asesor_id"`
	Estado    bool       `gorm:"not null;index;column:estado" json:"estado"`

	Asesor  *user.User `gorm:"foreignKey:AsesorID;references:ID" json:"asesor,omitempty"`
	Negocio *Negocio   `gorm:"foreignKey:LeadID;references:ID" json:"negocio,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

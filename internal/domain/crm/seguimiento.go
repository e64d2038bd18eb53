package crm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
)

const (
	TipoLlamada  = "📞 Llamada"
	TipoEmail    = "📧 Email"
	TipoVisita   = "🚗 Visita"
	TipoReunion  = "💬 Reunión"
	TipoWhatsapp = "💬 WhatsApp"
)

func TiposSeguimiento() []string {
	return []string{TipoLlamada, TipoEmail, TipoVisita, TipoReunion, TipoWhatsapp}
}

func IsValidTipoSeguimiento(tipo string) bool {
	for _, t := range TiposSeguimiento() {
		if t == tipo {
			return true
		}
	}
	return false
}

type Seguimiento struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	NegocioID           uuid.UUID       `gorm:"type:uuid;index;not null;column:negocio_id" json:"negocio_id"`
	Tipo                string          `gorm:"not null;size:50;column:tipo" json:"tipo"`
	Descripcion         string          `gorm:"not null;column:descripcion" json:"descripcion"`
	FechaSeguimiento    time.Time       `gorm:"not null;index;column:fecha_seguimiento" json:"fecha_seguimiento"`
	ProximoSeguimiento  *datatypes.Date `gorm:"index;column:proximo_seguimiento" json:"proximo_seguimiento"`
	RecordatorioEnviado bool            `gorm:"not null;column:recordatorio_enviado" json:"recordatorio_enviado"`
	AsesorID            *uuid.UUID      `gorm:"type:uuid;index;column:asesor_id" json:"asesor_id"`

	Negocio *Negocio   `gorm:"foreignKey:NegocioID;references:ID" json:"negocio,omitempty"`
	Asesor  *user.User `gorm:"foreignKey:AsesorID;references:ID" json:"asesor,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Seguimiento) TableName() string { return "seguimientos" }

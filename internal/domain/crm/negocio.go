package crm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
)

const (
	EtapaInteres     = "Interés Generado"
	EtapaContacto    = "Contacto Inicial"
	EtapaVisita      = "Visita Programada"
	EtapaPropuesta   = "Propuesta / Oferta"
	EtapaNegociacion = "Negociación"
	EtapaCierre      = "Cierre / Venta Concretada"
	EtapaPerdido     = "Perdido / No Concretado"
)

const (
	TipoOperacionVentas = "ventas"
	EmbudoVentas        = "ventas"
)

// IsClosedStage reports whether etapa ends the pipeline (won or lost).
func IsClosedStage(etapa string) bool {
	return etapa == EtapaCierre || etapa == EtapaPerdido
}

type Negocio struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID        uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null;column:lead_id" json:"lead_id"`
	TerrenoID     *uuid.UUID     `gorm:"type:uuid;index;column:terreno_id" json:"terreno_id"`
	TipoOperacion string         `gorm:"size:50;column:tipo_operacion" json:"tipo_operacion"`
	Embudo        string         `gorm:"size:50;column:embudo" json:"embudo"`
	EmbudoID      *uuid.UUID     `gorm:"type:uuid;index;column:embudo_id" json:"embudo_id"`
	Etapa         string         `gorm:"not null;size:100;index;column:etapa" json:"etapa"`
	FechaInicio   datatypes.Date `gorm:"column:fecha_inicio" json:"fecha_inicio"`
	MontoEstimado *float64       `gorm:"type:numeric(12,2);column:monto_estimado" json:"monto_estimado"`
	Notas         string         `gorm:"column:notas" json:"notas"`
	AsesorID      *uuid.UUID     `gorm:"type:uuid;index;column:asesor_id" json:"asesor_id"`
	// ConvertidoCliente flips to true once the deal reaches the won stage.
	ConvertidoCliente bool `gorm:"not null;column:convertido_cliente" json:"convertido_cliente"`

	Lead         *Lead              `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	Terreno      *inventory.Terreno `gorm:"foreignKey:TerrenoID;references:ID" json:"terreno,omitempty"`
	Asesor       *user.User         `gorm:"foreignKey:AsesorID;references:ID" json:"asesor,omitempty"`
	EtapaEmbudo  *Embudo            `gorm:"foreignKey:EmbudoID;references:ID" json:"embudo_relacion,omitempty"`
	Seguimientos []*Seguimiento     `gorm:"foreignKey:NegocioID;references:ID" json:"seguimientos,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Negocio) TableName() string { return "negocios" }

package domain

import (
	"github.com/yungbote/terrenos-crm-backend/internal/domain/auth"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
)

const (
	RoleAdmin  = user.RoleAdmin
	RoleAsesor = user.RoleAsesor

	TerrenoDisponible = inventory.EstadoDisponible
	TerrenoVendido    = inventory.EstadoVendido
	TerrenoReservado  = inventory.EstadoReservado

	EtapaCierre  = crm.EtapaCierre
	EtapaPerdido = crm.EtapaPerdido

	DefaultEmbudoColor = crm.DefaultEmbudoColor
)

type User = user.User
type UserToken = auth.UserToken

type Proyecto = inventory.Proyecto
type Barrio = inventory.Barrio
type Cuadra = inventory.Cuadra
type CategoriaTerreno = inventory.CategoriaTerreno
type Terreno = inventory.Terreno
type DocumentoTerreno = inventory.DocumentoTerreno

type Lead = crm.Lead
type Negocio = crm.Negocio
type Embudo = crm.Embudo
type Seguimiento = crm.Seguimiento

type WhatsappSession = whatsapp.Session
type WhatsappConversation = whatsapp.Conversation
type WhatsappMessage = whatsapp.Message
type WhatsappAutoReply = whatsapp.AutoReply

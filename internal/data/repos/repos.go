package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/auth"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/inventory"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/user"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type TerrenoRepo = inventory.TerrenoRepo
type ProyectoRepo = inventory.ProyectoRepo
type CategoriaRepo = inventory.CategoriaRepo
type MapaRepo = inventory.MapaRepo

type LeadRepo = crm.LeadRepo
type NegocioRepo = crm.NegocioRepo
type EmbudoRepo = crm.EmbudoRepo
type SeguimientoRepo = crm.SeguimientoRepo

type WhatsappSessionRepo = whatsapp.SessionRepo
type WhatsappConversationRepo = whatsapp.ConversationRepo
type WhatsappMessageRepo = whatsapp.MessageRepo
type WhatsappAutoReplyRepo = whatsapp.AutoReplyRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewTerrenoRepo(db *gorm.DB, baseLog *logger.Logger) TerrenoRepo {
	return inventory.NewTerrenoRepo(db, baseLog)
}
func NewProyectoRepo(db *gorm.DB, baseLog *logger.Logger) ProyectoRepo {
	return inventory.NewProyectoRepo(db, baseLog)
}
func NewCategoriaRepo(db *gorm.DB, baseLog *logger.Logger) CategoriaRepo {
	return inventory.NewCategoriaRepo(db, baseLog)
}
func NewMapaRepo(db *gorm.DB, baseLog *logger.Logger) MapaRepo {
	return inventory.NewMapaRepo(db, baseLog)
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo { return crm.NewLeadRepo(db, baseLog) }
func NewNegocioRepo(db *gorm.DB, baseLog *logger.Logger) NegocioRepo {
	return crm.NewNegocioRepo(db, baseLog)
}
func NewEmbudoRepo(db *gorm.DB, baseLog *logger.Logger) EmbudoRepo {
	return crm.NewEmbudoRepo(db, baseLog)
}
func NewSeguimientoRepo(db *gorm.DB, baseLog *logger.Logger) SeguimientoRepo {
	return crm.NewSeguimientoRepo(db, baseLog)
}

func NewWhatsappSessionRepo(db *gorm.DB, baseLog *logger.Logger) WhatsappSessionRepo {
	return whatsapp.NewSessionRepo(db, baseLog)
}
func NewWhatsappConversationRepo(db *gorm.DB, baseLog *logger.Logger) WhatsappConversationRepo {
	return whatsapp.NewConversationRepo(db, baseLog)
}
func NewWhatsappMessageRepo(db *gorm.DB, baseLog *logger.Logger) WhatsappMessageRepo {
	return whatsapp.NewMessageRepo(db, baseLog)
}
func NewWhatsappAutoReplyRepo(db *gorm.DB, baseLog *logger.Logger) WhatsappAutoReplyRepo {
	return whatsapp.NewAutoReplyRepo(db, baseLog)
}

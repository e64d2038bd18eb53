package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo

	Terreno   repos.TerrenoRepo
	Proyecto  repos.ProyectoRepo
	Categoria repos.CategoriaRepo
	Mapa      repos.MapaRepo

	Lead        repos.LeadRepo
	Negocio     repos.NegocioRepo
	Embudo      repos.EmbudoRepo
	Seguimiento repos.SeguimientoRepo

	WhatsappSession      repos.WhatsappSessionRepo
	WhatsappConversation repos.WhatsappConversationRepo
	WhatsappMessage      repos.WhatsappMessageRepo
	WhatsappAutoReply    repos.WhatsappAutoReplyRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),

		Terreno:   repos.NewTerrenoRepo(db, log),
		Proyecto:  repos.NewProyectoRepo(db, log),
		Categoria: repos.NewCategoriaRepo(db, log),
		Mapa:      repos.NewMapaRepo(db, log),

		Lead:        repos.NewLeadRepo(db, log),
		Negocio:     repos.NewNegocioRepo(db, log),
		Embudo:      repos.NewEmbudoRepo(db, log),
		Seguimiento: repos.NewSeguimientoRepo(db, log),

		WhatsappSession:      repos.NewWhatsappSessionRepo(db, log),
		WhatsappConversation: repos.NewWhatsappConversationRepo(db, log),
		WhatsappMessage:      repos.NewWhatsappMessageRepo(db, log),
		WhatsappAutoReply:    repos.NewWhatsappAutoReplyRepo(db, log),
	}
}

package app

import (
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/observability"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type Services struct {
	// Auth + users
	Auth services.AuthService
	User services.UserService

	// Inventory
	Inventory services.InventoryService
	Mapa      services.MapaService

	// CRM
	Lead        services.LeadService
	Negocio     services.NegocioService
	Embudo      services.EmbudoService
	Seguimiento services.SeguimientoService

	// WhatsApp inbox
	WhatsappSession      services.WhatsappSessionService
	WhatsappConversation services.WhatsappConversationService
	WhatsappMessage      services.WhatsappMessageService
	WhatsappAutoReply    services.WhatsappAutoReplyService

	Emitter services.SSEEmitter
}

func wireServices(db *gorm.DB, log *logger.Logger, clock clockwork.Clock, cfg Config, repos Repos, sseHub *realtime.SSEHub, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	var emitter services.SSEEmitter
	if clients.SSEBus != nil {
		// Publish to Redis so every replica's hub fans out to its clients.
		emitter = &services.RedisEmitter{Bus: clients.SSEBus, Log: log}
	} else {
		emitter = &services.HubEmitter{Hub: sseHub}
	}
	crmNotifier := services.NewCRMNotifier(emitter)
	waNotifier := services.NewWhatsappNotifier(emitter)

	authService := services.NewAuthService(
		db, log, clock,
		repos.User,
		repos.UserToken,
		cfg.JWTSecretKey,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	userService := services.NewUserService(db, log, repos.User)

	inventoryService := services.NewInventoryService(db, log, repos.Terreno, repos.Proyecto, repos.Categoria)
	mapaService := services.NewMapaService(db, log, repos.Proyecto, repos.Terreno, repos.Mapa)

	leadService := services.NewLeadService(db, log, repos.Lead, repos.Negocio, repos.Seguimiento, repos.Embudo, repos.Terreno)
	negocioService := services.NewNegocioService(db, log, repos.Negocio, repos.Embudo, repos.Seguimiento, repos.Terreno, crmNotifier)
	embudoService := services.NewEmbudoService(db, log, repos.Embudo, repos.Negocio, repos.Seguimiento)
	seguimientoService := services.NewSeguimientoService(db, log, clock, repos.Seguimiento, repos.Negocio, crmNotifier)

	sessionService := services.NewWhatsappSessionService(db, log, clock, repos.WhatsappSession, waNotifier)
	conversationService := services.NewWhatsappConversationService(
		db, log, clock,
		repos.WhatsappConversation,
		repos.WhatsappMessage,
		repos.Lead,
		repos.User,
	)
	messageService := services.NewWhatsappMessageService(
		db, log, clock,
		repos.WhatsappMessage,
		repos.WhatsappConversation,
		repos.WhatsappAutoReply,
		clients.Media,
		waNotifier,
		metrics,
	)
	autoReplyService := services.NewWhatsappAutoReplyService(db, log, repos.WhatsappAutoReply)

	return Services{
		Auth:                 authService,
		User:                 userService,
		Inventory:            inventoryService,
		Mapa:                 mapaService,
		Lead:                 leadService,
		Negocio:              negocioService,
		Embudo:               embudoService,
		Seguimiento:          seguimientoService,
		WhatsappSession:      sessionService,
		WhatsappConversation: conversationService,
		WhatsappMessage:      messageService,
		WhatsappAutoReply:    autoReplyService,
		Emitter:              emitter,
	}
}

package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/http"
	httpH "github.com/yungbote/terrenos-crm-backend/internal/http/handlers"
	httpMW "github.com/yungbote/terrenos-crm-backend/internal/http/middleware"
	"github.com/yungbote/terrenos-crm-backend/internal/observability"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Realtime *httpH.RealtimeHandler

	Inventory   *httpH.InventoryHandler
	Mapa        *httpH.MapaHandler
	Lead        *httpH.LeadHandler
	Negocio     *httpH.NegocioHandler
	Embudo      *httpH.EmbudoHandler
	Seguimiento *httpH.SeguimientoHandler

	Session      *httpH.WhatsappSessionHandler
	Conversation *httpH.WhatsappConversationHandler
	Message      *httpH.WhatsappMessageHandler
	AutoReply    *httpH.WhatsappAutoReplyHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, sseHub *realtime.SSEHub, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Auth:     httpH.NewAuthHandler(services.Auth),
		User:     httpH.NewUserHandler(services.User),
		Realtime: httpH.NewRealtimeHandler(log, sseHub, metrics),

		Inventory:   httpH.NewInventoryHandler(services.Inventory),
		Mapa:        httpH.NewMapaHandler(services.Mapa),
		Lead:        httpH.NewLeadHandler(services.Lead),
		Negocio:     httpH.NewNegocioHandler(services.Negocio),
		Embudo:      httpH.NewEmbudoHandler(services.Embudo),
		Seguimiento: httpH.NewSeguimientoHandler(services.Seguimiento),

		Session:      httpH.NewWhatsappSessionHandler(services.WhatsappSession),
		Conversation: httpH.NewWhatsappConversationHandler(services.WhatsappConversation),
		Message:      httpH.NewWhatsappMessageHandler(log, services.WhatsappMessage),
		AutoReply:    httpH.NewWhatsappAutoReplyHandler(services.WhatsappAutoReply),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:         log,
		Metrics:     metrics,
		ServiceName: ServiceName,
		OtelEnabled: cfg.OtelEnabled,
		CORSOrigins: cfg.CORSOrigins,

		WebhookSecret:    cfg.WebhookSecret,
		WebhookRateLimit: cfg.WebhookRateLimit,
		WebhookBurst:     cfg.WebhookBurst,

		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		UserHandler:     handlers.User,
		RealtimeHandler: handlers.Realtime,

		InventoryHandler:   handlers.Inventory,
		MapaHandler:        handlers.Mapa,
		LeadHandler:        handlers.Lead,
		NegocioHandler:     handlers.Negocio,
		EmbudoHandler:      handlers.Embudo,
		SeguimientoHandler: handlers.Seguimiento,

		SessionHandler:      handlers.Session,
		ConversationHandler: handlers.Conversation,
		MessageHandler:      handlers.Message,
		AutoReplyHandler:    handlers.AutoReply,
	})
}

package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	httpH "github.com/yungbote/terrenos-crm-backend/internal/http/handlers"
	httpMW "github.com/yungbote/terrenos-crm-backend/internal/http/middleware"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/observability"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	OtelEnabled bool
	CORSOrigins []string

	WebhookSecret    string
	WebhookRateLimit float64
	WebhookBurst     int

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	UserHandler     *httpH.UserHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler

	InventoryHandler   *httpH.InventoryHandler
	MapaHandler        *httpH.MapaHandler
	LeadHandler        *httpH.LeadHandler
	NegocioHandler     *httpH.NegocioHandler
	EmbudoHandler      *httpH.EmbudoHandler
	SeguimientoHandler *httpH.SeguimientoHandler

	SessionHandler      *httpH.WhatsappSessionHandler
	ConversationHandler *httpH.WhatsappConversationHandler
	MessageHandler      *httpH.WhatsappMessageHandler
	AutoReplyHandler    *httpH.WhatsappAutoReplyHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	validation.Setup()

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.OtelEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health + metrics
	if cfg.HealthHandler != nil {
		r.GET("/up", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}

		// Map layers (public, loaded directly by the map client)
		if cfg.MapaHandler != nil {
			mapa := api.Group("/mapa")
			mapa.GET("/proyectos", cfg.MapaHandler.Proyectos)
			mapa.GET("/proyectos/:id", cfg.MapaHandler.Proyecto)
			mapa.GET("/proyectos/:id/barrios", cfg.MapaHandler.Barrios)
			mapa.GET("/proyectos/:id/cuadras", cfg.MapaHandler.Cuadras)
			mapa.GET("/proyectos/:id/terrenos", cfg.MapaHandler.Terrenos)
			mapa.GET("/proyectos/:id/terrenos/disponibles", cfg.MapaHandler.TerrenosDisponibles)
			mapa.GET("/proyectos/:id/categorias", cfg.MapaHandler.Categorias)
		}
	}

	// Bridge webhooks
	webhooks := api.Group("/whatsapp")
	{
		webhooks.Use(httpMW.WebhookSecret(cfg.WebhookSecret))
		if cfg.WebhookRateLimit > 0 {
			webhooks.Use(httpMW.RateLimit(cfg.WebhookRateLimit, cfg.WebhookBurst))
		}
		if cfg.MessageHandler != nil {
			webhooks.POST("/webhook/message", cfg.MessageHandler.Webhook)
		}
		if cfg.ConversationHandler != nil {
			webhooks.POST("/sync-chats", cfg.ConversationHandler.SyncChats)
			webhooks.POST("/clear-chats", cfg.ConversationHandler.ClearChats)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
			protected.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
			protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
		}

		// Users
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.GET("/users", cfg.UserHandler.List)
			if cfg.AuthMiddleware != nil {
				protected.POST("/users", cfg.AuthMiddleware.RequireRole(user.RoleAdmin), cfg.UserHandler.Create)
			} else {
				protected.POST("/users", cfg.UserHandler.Create)
			}
		}

		// Inventory
		if cfg.InventoryHandler != nil {
			protected.GET("/terrenos", cfg.InventoryHandler.List)
			protected.GET("/terrenos/proyectos", cfg.InventoryHandler.Proyectos)
			protected.GET("/terrenos/categorias", cfg.InventoryHandler.Categorias)
			protected.GET("/terrenos/dropdown", cfg.InventoryHandler.Dropdown)
			protected.GET("/terrenos/:id", cfg.InventoryHandler.Get)
		}

		// Leads
		if cfg.LeadHandler != nil {
			protected.GET("/leads", cfg.LeadHandler.List)
			protected.POST("/leads", cfg.LeadHandler.Create)
			protected.POST("/leads/buscar-por-codigo", cfg.LeadHandler.BuscarPorCodigo)
			protected.GET("/leads/:id", cfg.LeadHandler.Get)
			protected.PUT("/leads/:id", cfg.LeadHandler.Update)
			protected.DELETE("/leads/:id", cfg.LeadHandler.Delete)
		}

		// Negocios
		if cfg.NegocioHandler != nil {
			protected.GET("/negocios", cfg.NegocioHandler.List)
			protected.GET("/negocios/tablero", cfg.NegocioHandler.Tablero)
			protected.GET("/negocios/estadisticas", cfg.NegocioHandler.Estadisticas)
			protected.GET("/negocios/:id", cfg.NegocioHandler.Get)
			protected.PUT("/negocios/:id", cfg.NegocioHandler.Update)
			protected.PUT("/negocios/:id/etapa", cfg.NegocioHandler.ActualizarEtapa)
			protected.DELETE("/negocios/:id", cfg.NegocioHandler.Delete)
		}

		// Embudos (pipeline stages)
		if cfg.EmbudoHandler != nil {
			protected.GET("/embudos", cfg.EmbudoHandler.List)
			protected.POST("/embudos", cfg.EmbudoHandler.Create)
			protected.POST("/embudos/reordenar", cfg.EmbudoHandler.Reordenar)
			protected.GET("/embudos/:id", cfg.EmbudoHandler.Get)
			protected.PUT("/embudos/:id", cfg.EmbudoHandler.Update)
			protected.DELETE("/embudos/:id", cfg.EmbudoHandler.Delete)
		}

		// Seguimientos
		if cfg.SeguimientoHandler != nil {
			protected.GET("/seguimientos/tipos", cfg.SeguimientoHandler.Tipos)
			protected.GET("/seguimientos/pendientes", cfg.SeguimientoHandler.Pendientes)
			protected.GET("/seguimientos/detalle/:id", cfg.SeguimientoHandler.Get)
			protected.GET("/seguimientos/:id", cfg.SeguimientoHandler.ListByNegocio)
			protected.POST("/seguimientos", cfg.SeguimientoHandler.Create)
			protected.PUT("/seguimientos/:id", cfg.SeguimientoHandler.Update)
			protected.PUT("/seguimientos/:id/recordatorio", cfg.SeguimientoHandler.MarcarRecordatorio)
			protected.DELETE("/seguimientos/:id", cfg.SeguimientoHandler.Delete)
		}

		wa := protected.Group("/whatsapp")

		if h := cfg.SessionHandler; h != nil {
			wa.GET("/sessions", h.List)
			wa.GET("/sessions/active", h.Active)
			wa.POST("/sessions", h.Create)
			wa.GET("/sessions/:id", h.Get)
			wa.PUT("/sessions/:id", h.Update)
			wa.DELETE("/sessions/:id", h.Delete)
			wa.GET("/sessions/:id/qr", h.GetQR)
			wa.POST("/sessions/:id/qr", h.SetQR)
			wa.POST("/sessions/:id/status", h.SetStatus)
		}

		if h := cfg.ConversationHandler; h != nil {
			wa.GET("/conversations", h.List)
			wa.GET("/conversations/unread", h.Unread)
			wa.POST("/conversations/search", h.Search)
			wa.POST("/conversations", h.Create)
			wa.GET("/conversations/:id", h.Get)
			wa.PUT("/conversations/:id", h.Update)
			wa.DELETE("/conversations/:id", h.Delete)
			wa.POST("/conversations/:id/mark-read", h.MarkRead)
			wa.POST("/conversations/:id/close", h.Close)
			wa.POST("/conversations/:id/archive", h.Archive)
			wa.POST("/conversations/:id/reopen", h.Reopen)
			wa.POST("/conversations/:id/assign", h.Assign)
			wa.POST("/conversations/:id/link-lead", h.LinkLead)
		}

		if h := cfg.MessageHandler; h != nil {
			wa.GET("/messages", h.List)
			wa.POST("/messages", h.Send)
			wa.POST("/messages/mark-read", h.MarkRead)
			wa.GET("/messages/conversation/:id", h.ByConversation)
			wa.GET("/messages/conversation/:id/media", h.Media)
			wa.GET("/messages/:id", h.Get)
			wa.DELETE("/messages/:id", h.Delete)
			wa.POST("/messages/:id/status", h.SetStatus)
		}

		if h := cfg.AutoReplyHandler; h != nil {
			wa.GET("/auto-replies", h.List)
			wa.GET("/auto-replies/active", h.Active)
			wa.GET("/auto-replies/greeting", h.Greeting)
			wa.GET("/auto-replies/keywords", h.Keywords)
			wa.POST("/auto-replies/find-match", h.FindMatch)
			wa.POST("/auto-replies/bulk-toggle", h.BulkToggle)
			wa.POST("/auto-replies", h.Create)
			wa.GET("/auto-replies/:id", h.Get)
			wa.PUT("/auto-replies/:id", h.Update)
			wa.DELETE("/auto-replies/:id", h.Delete)
			wa.POST("/auto-replies/:id/activate", h.Activate)
			wa.POST("/auto-replies/:id/deactivate", h.Deactivate)
			wa.POST("/auto-replies/:id/priority", h.SetPriority)
		}
	}

	return r
}

package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/db"
	"github.com/yungbote/terrenos-crm-backend/internal/http"
	"github.com/yungbote/terrenos-crm-backend/internal/jobs/worker"
	"github.com/yungbote/terrenos-crm-backend/internal/observability"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clock    clockwork.Clock
	Clients  Clients
	Repos    Repos
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics
	Workers  []*worker.Worker

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDB connects and migrates; used by the server and the CLI commands.
func OpenDB(log *logger.Logger) (*db.PostgresService, error) {
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return pg, nil
}

func New(ctx context.Context) (*App, error) {
	log, err := NewLogger()
	if err != nil {
		return nil, err
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	clock := clockwork.NewRealClock()

	metrics := observability.Init(log)
	otelCfg := observability.OtelConfigFromEnv()
	otelCfg.Enabled = cfg.OtelEnabled
	otelCfg.ServiceName = ServiceName
	otelCfg.Environment = os.Getenv("LOG_MODE")
	otelCfg.Version = os.Getenv("APP_VERSION")
	otelCfg.BridgeURL = cfg.BridgeURL
	otelShutdown := observability.InitOTel(ctx, log, otelCfg)

	pg, err := OpenDB(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	theDB := pg.DB()

	sseHub := realtime.NewSSEHub(log)

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, clock, cfg, reposet, sseHub, clients, metrics)
	handlerset := wireHandlers(theDB, log, serviceset, sseHub, metrics)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, handlerset, middleware, metrics)
	workers := wireWorkers(log, clock, cfg, serviceset, clients, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Clock:        clock,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       sseHub,
		Metrics:      metrics,
		Workers:      workers,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background pieces: the redis forwarder, metrics
// collectors and workers.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}

	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	if a.Cfg.RedisAddr != "" {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	}

	for _, w := range a.Workers {
		w.Start(ctx)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Starting HTTP server", "addr", addr)
	srv := &http.Server{Engine: a.Router}
	return srv.Run(ctx, addr, a.Cfg.ShutdownGrace)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		for _, w := range a.Workers {
			w.Wait()
		}
		a.Clients.Close()
		if a.otelShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.otelShutdown(ctx); err != nil {
				a.Log.Warn("otel shutdown failed", "error", err)
			}
			cancel()
		}
		if a.pg != nil {
			_ = a.pg.Close()
		}
		a.Log.Sync()
	})
}

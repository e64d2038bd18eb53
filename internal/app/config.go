package app

import (
	"strings"
	"time"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/envutil"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/utils"
)

const ServiceName = "terrenos-crm-backend"

type Config struct {
	Port string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	WebhookSecret    string
	WebhookRateLimit float64
	WebhookBurst     int

	BridgeURL              string
	OutboundWorkerInterval time.Duration
	ReminderWorkerInterval time.Duration

	CORSOrigins   []string
	OtelEnabled   bool
	SeedFile      string
	ShutdownGrace time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	return Config{
		Port: utils.GetEnv("PORT", "8080", log),

		JWTSecretKey:    utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisChannel:  envutil.String("REDIS_CHANNEL", "sse"),

		WebhookSecret:    envutil.String("WHATSAPP_WEBHOOK_SECRET", ""),
		WebhookRateLimit: envutil.Float("WEBHOOK_RATE_LIMIT_RPS", 20),
		WebhookBurst:     envutil.Int("WEBHOOK_RATE_LIMIT_BURST", 40),

		BridgeURL:              strings.TrimSpace(envutil.String("WHATSAPP_BRIDGE_URL", "")),
		OutboundWorkerInterval: envutil.Duration("OUTBOUND_WORKER_INTERVAL", 5*time.Second),
		ReminderWorkerInterval: envutil.Duration("REMINDER_WORKER_INTERVAL", 15*time.Minute),

		CORSOrigins:   envutil.List("CORS_ALLOWED_ORIGINS"),
		OtelEnabled:   envutil.Bool("OTEL_ENABLED", false),
		SeedFile:      envutil.String("SEED_FILE", ""),
		ShutdownGrace: envutil.Duration("SHUTDOWN_GRACE", 10*time.Second),
	}
}

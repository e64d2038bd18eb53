package app

import (
	"fmt"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/gcp"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/wabridge"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime/bus"
)

type Clients struct {
	SSEBus bus.Bus
	Media  gcp.MediaStore
	Bridge wabridge.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var sseBus bus.Bus
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(log, bus.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	// Gcs
	media, err := gcp.NewMediaStore(log)
	if err != nil {
		if sseBus != nil {
			_ = sseBus.Close()
		}
		return Clients{}, fmt.Errorf("init media store: %w", err)
	}

	// WhatsApp bridge (optional)
	var bridge wabridge.Client
	if cfg.BridgeURL != "" {
		bc := wabridge.ConfigFromEnv()
		bc.BaseURL = cfg.BridgeURL
		bridge, err = wabridge.New(log, bc)
		if err != nil {
			_ = media.Close()
			if sseBus != nil {
				_ = sseBus.Close()
			}
			return Clients{}, fmt.Errorf("init whatsapp bridge client: %w", err)
		}
	}

	return Clients{SSEBus: sseBus, Media: media, Bridge: bridge}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Media != nil {
		_ = c.Media.Close()
	}
}

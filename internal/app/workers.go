package app

import (
	"github.com/jonboulle/clockwork"

	"github.com/yungbote/terrenos-crm-backend/internal/jobs/worker"
	"github.com/yungbote/terrenos-crm-backend/internal/observability"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

func wireWorkers(log *logger.Logger, clock clockwork.Clock, cfg Config, services Services, clients Clients, metrics *observability.Metrics) []*worker.Worker {
	log.Info("Wiring workers...")

	workers := []*worker.Worker{
		worker.NewWorker(log, clock, worker.NewReminderTask(services.Seguimiento, metrics), cfg.ReminderWorkerInterval, metrics),
	}

	if clients.Bridge != nil {
		dispatcher := worker.NewOutboundDispatcher(log, services.WhatsappMessage, clients.Bridge, metrics)
		workers = append(workers, worker.NewWorker(log, clock, dispatcher, cfg.OutboundWorkerInterval, metrics))
	} else {
		log.Info("WHATSAPP_BRIDGE_URL not set; outbound dispatcher disabled")
	}

	return workers
}

package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/wabridge"
)

const outboundBatch = 50

type OutboxSource interface {
	PendingOutgoing(ctx context.Context, limit int) ([]*types.WhatsappMessage, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.WhatsappMessage, error)
}

type DeliveryMetrics interface {
	IncOutboundDelivery(result string)
}

// OutboundDispatcher pushes queued outgoing messages to the WhatsApp bridge.
type OutboundDispatcher struct {
	log     *logger.Logger
	outbox  OutboxSource
	bridge  wabridge.Client
	metrics DeliveryMetrics
}

func NewOutboundDispatcher(baseLog *logger.Logger, outbox OutboxSource, bridge wabridge.Client, metrics DeliveryMetrics) *OutboundDispatcher {
	return &OutboundDispatcher{
		log:     baseLog.With("component", "OutboundDispatcher"),
		outbox:  outbox,
		bridge:  bridge,
		metrics: metrics,
	}
}

func (d *OutboundDispatcher) Name() string { return "outbound" }

func (d *OutboundDispatcher) Run(ctx context.Context) error {
	pending, err := d.outbox.PendingOutgoing(ctx, outboundBatch)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.Conversation == nil {
			d.log.Warn("Outgoing message without conversation", "message_id", m.MessageID)
			d.mark(ctx, m, wa.StatusFailed, "failed")
			continue
		}
		_, err := d.bridge.Send(ctx, wabridge.SendRequest{
			MessageID:     m.MessageID,
			Phone:         m.Conversation.ContactPhone,
			Type:          m.Type,
			Content:       m.Content,
			MediaURL:      m.MediaURL,
			MediaMimeType: m.MediaMimeType,
		})
		switch {
		case err == nil:
			d.mark(ctx, m, wa.StatusSent, "sent")
		case wabridge.IsPermanent(err):
			d.log.Warn("Bridge rejected message", "message_id", m.MessageID, "error", err)
			d.mark(ctx, m, wa.StatusFailed, "failed")
		case errors.Is(err, wabridge.ErrCircuitOpen):
			d.inc("deferred")
			return nil
		default:
			// Left pending for the next tick.
			d.log.Warn("Bridge delivery failed", "message_id", m.MessageID, "error", err)
			d.inc("retry")
		}
	}
	return nil
}

func (d *OutboundDispatcher) mark(ctx context.Context, m *types.WhatsappMessage, status, result string) {
	if _, err := d.outbox.SetStatus(ctx, m.ID, status); err != nil {
		d.log.Error("Failed to update message status", "message_id", m.MessageID, "status", status, "error", err)
	}
	d.inc(result)
}

func (d *OutboundDispatcher) inc(result string) {
	if d.metrics != nil {
		d.metrics.IncOutboundDelivery(result)
	}
}

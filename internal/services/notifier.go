package services

import (
	"context"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/realtime"
)

type CRMNotifier interface {
	EtapaActualizada(ctx context.Context, negocio *types.Negocio, etapaAnterior string)
	Recordatorio(ctx context.Context, seg *types.Seguimiento)
}

type crmNotifier struct {
	emit SSEEmitter
}

func NewCRMNotifier(emit SSEEmitter) CRMNotifier {
	if emit == nil {
		emit = NopEmitter()
	}
	return &crmNotifier{emit: emit}
}

func (n *crmNotifier) EtapaActualizada(ctx context.Context, negocio *types.Negocio, etapaAnterior string) {
	if negocio == nil {
		return
	}
	data := map[string]any{
		"negocio_id":         negocio.ID,
		"etapa":              negocio.Etapa,
		"etapa_anterior":     etapaAnterior,
		"convertido_cliente": negocio.ConvertidoCliente,
	}
	if negocio.AsesorID != nil {
		n.emit.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(*negocio.AsesorID),
			Event:   realtime.SSEEventNegocioEtapaActualizada,
			Data:    data,
		})
	}
}

func (n *crmNotifier) Recordatorio(ctx context.Context, seg *types.Seguimiento) {
	if seg == nil || seg.AsesorID == nil {
		return
	}
	data := map[string]any{
		"seguimiento_id":      seg.ID,
		"negocio_id":          seg.NegocioID,
		"tipo":                seg.Tipo,
		"descripcion":         seg.Descripcion,
		"proximo_seguimiento": seg.ProximoSeguimiento,
	}
	if seg.Negocio != nil && seg.Negocio.Lead != nil {
		data["lead"] = map[string]any{
			"id":       seg.Negocio.Lead.ID,
			"nombre":   seg.Negocio.Lead.Nombre,
			"numero_1": seg.Negocio.Lead.Numero1,
		}
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(*seg.AsesorID),
		Event:   realtime.SSEEventSeguimientoRecordatorio,
		Data:    data,
	})
}

type WhatsappNotifier interface {
	SessionQR(ctx context.Context, s *types.WhatsappSession)
	SessionStatus(ctx context.Context, s *types.WhatsappSession)
	MessageCreated(ctx context.Context, m *types.WhatsappMessage)
	MessageReceived(ctx context.Context, m *types.WhatsappMessage, autoReply *types.WhatsappMessage)
	MessageStatus(ctx context.Context, m *types.WhatsappMessage)
}

type whatsappNotifier struct {
	emit SSEEmitter
}

func NewWhatsappNotifier(emit SSEEmitter) WhatsappNotifier {
	if emit == nil {
		emit = NopEmitter()
	}
	return &whatsappNotifier{emit: emit}
}

func (n *whatsappNotifier) SessionQR(ctx context.Context, s *types.WhatsappSession) {
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelWhatsapp,
		Event:   realtime.SSEEventWhatsappSessionQR,
		Data: map[string]any{
			"id":         s.ID,
			"session_id": s.SessionID,
			"qr_code":    s.QRCode,
			"status":     s.Status,
		},
	})
}

func (n *whatsappNotifier) SessionStatus(ctx context.Context, s *types.WhatsappSession) {
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelWhatsapp,
		Event:   realtime.SSEEventWhatsappSessionStatus,
		Data: map[string]any{
			"id":            s.ID,
			"session_id":    s.SessionID,
			"status":        s.Status,
			"last_activity": s.LastActivity,
		},
	})
}

func (n *whatsappNotifier) MessageCreated(ctx context.Context, m *types.WhatsappMessage) {
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelWhatsapp,
		Event:   realtime.SSEEventWhatsappMessageCreated,
		Data:    map[string]any{"message": m},
	})
}

func (n *whatsappNotifier) MessageReceived(ctx context.Context, m *types.WhatsappMessage, autoReply *types.WhatsappMessage) {
	data := map[string]any{
		"conversation_id": m.ConversationID,
		"message":         m,
	}
	if autoReply != nil {
		data["auto_reply"] = autoReply
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelWhatsapp,
		Event:   realtime.SSEEventWhatsappMessageReceived,
		Data:    data,
	})
}

func (n *whatsappNotifier) MessageStatus(ctx context.Context, m *types.WhatsappMessage) {
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelWhatsapp,
		Event:   realtime.SSEEventWhatsappMessageStatus,
		Data: map[string]any{
			"id":              m.ID,
			"message_id":      m.MessageID,
			"conversation_id": m.ConversationID,
			"status":          m.Status,
		},
	})
}

package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	warepo "github.com/yungbote/terrenos-crm-backend/internal/data/repos/whatsapp"
	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/terrenos-crm-backend/internal/pkg/errors"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const (
	MessagesPerPage = 50
	// MaxMediaBytes caps a single webhook attachment.
	MaxMediaBytes = 50 << 20

	DefaultContactName = "Sin nombre"
	randomIDLength     = 20
)

// MediaStore persists inbound attachments and returns their URL.
type MediaStore interface {
	Enabled() bool
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

type InboxMetrics interface {
	IncWhatsappMessage(direction, msgType string)
	IncAutoReplyMatched()
	IncMediaUpload(result string)
}

type nopInboxMetrics struct{}

func (nopInboxMetrics) IncWhatsappMessage(string, string) {}
func (nopInboxMetrics) IncAutoReplyMatched()              {}
func (nopInboxMetrics) IncMediaUpload(string)             {}

type SendMessageInput struct {
	ConversationID uuid.UUID
	Type           string
	Content        string
	MediaURL       string
	MediaMimeType  string
}

type IncomingFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IncomingMessage is one message delivered by the bridge webhook.
type IncomingMessage struct {
	MessageID    string
	ContactPhone string
	ContactName  string
	Content      string
	Type         string
	SenderPhone  string
	SenderName   string
	// Timestamp is unix seconds as reported by WhatsApp; zero means now.
	Timestamp int64
	File      *IncomingFile
}

type ReceiveResult struct {
	Message   *types.WhatsappMessage
	AutoReply *types.WhatsappMessage
	Duplicate bool
}

type WhatsappMessageService interface {
	List(dbc dbctx.Context, f warepo.MessageFilter, p pagination.Params) (*pagination.Result[*types.WhatsappMessage], error)
	ByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error)
	Media(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappMessage, error)
	Send(ctx context.Context, in SendMessageInput) (*types.WhatsappMessage, error)
	Receive(ctx context.Context, in IncomingMessage) (*ReceiveResult, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.WhatsappMessage, error)
	MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// PendingOutgoing lists queued outgoing messages, oldest first.
	PendingOutgoing(ctx context.Context, limit int) ([]*types.WhatsappMessage, error)
}

type whatsappMessageService struct {
	db               *gorm.DB
	log              *logger.Logger
	clock            clockwork.Clock
	messageRepo      repos.WhatsappMessageRepo
	conversationRepo repos.WhatsappConversationRepo
	autoReplyRepo    repos.WhatsappAutoReplyRepo
	media            MediaStore
	notifier         WhatsappNotifier
	metrics          InboxMetrics
}

func NewWhatsappMessageService(
	db *gorm.DB,
	log *logger.Logger,
	clock clockwork.Clock,
	messageRepo repos.WhatsappMessageRepo,
	conversationRepo repos.WhatsappConversationRepo,
	autoReplyRepo repos.WhatsappAutoReplyRepo,
	media MediaStore,
	notifier WhatsappNotifier,
	metrics InboxMetrics,
) WhatsappMessageService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if notifier == nil {
		notifier = NewWhatsappNotifier(nil)
	}
	if metrics == nil {
		metrics = nopInboxMetrics{}
	}
	return &whatsappMessageService{
		db:               db,
		log:              log.With("service", "WhatsappMessageService"),
		clock:            clock,
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		autoReplyRepo:    autoReplyRepo,
		media:            media,
		notifier:         notifier,
		metrics:          metrics,
	}
}

func errMessageNotFound() error {
	return apierr.NotFound("message_not_found", "Mensaje no encontrado")
}

func (s *whatsappMessageService) List(dbc dbctx.Context, f warepo.MessageFilter, p pagination.Params) (*pagination.Result[*types.WhatsappMessage], error) {
	verr := apierr.NewValidation()
	if f.Direction != "" && !wa.IsValidDirection(f.Direction) {
		verr.Add("direction", "La dirección no es válida")
	}
	if f.Type != "" && !wa.IsValidMessageType(f.Type) {
		verr.Add("type", "El tipo de mensaje no es válido")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.messageRepo.List(dbc, f, p)
}

func (s *whatsappMessageService) requireConversation(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappConversation, error) {
	c, err := s.conversationRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errConversationNotFound()
	}
	return c, nil
}

func (s *whatsappMessageService) ByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error) {
	if _, err := s.requireConversation(dbc, conversationID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByConversation(dbc, conversationID)
}

func (s *whatsappMessageService) Media(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error) {
	if _, err := s.requireConversation(dbc, conversationID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListMedia(dbc, conversationID)
}

func (s *whatsappMessageService) Get(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappMessage, error) {
	m, err := s.messageRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errMessageNotFound()
	}
	return m, nil
}

func (s *whatsappMessageService) Send(ctx context.Context, in SendMessageInput) (*types.WhatsappMessage, error) {
	agentID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	verr := apierr.NewValidation()
	if in.ConversationID == uuid.Nil {
		verr.Add("conversation_id", "La conversación es obligatoria")
	}
	if strings.TrimSpace(in.Content) == "" {
		verr.Add("content", "El contenido es obligatorio")
	}
	msgType := in.Type
	if msgType == "" {
		msgType = wa.TypeText
	} else if !wa.IsValidMessageType(msgType) {
		verr.Add("type", "El tipo de mensaje no es válido")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	messageID, err := randomAlphanumeric(randomIDLength)
	if err != nil {
		return nil, err
	}

	var out *types.WhatsappMessage
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		conv, err := s.conversationRepo.GetByID(inner, in.ConversationID)
		if err != nil {
			return err
		}
		if conv == nil {
			return apierr.Field("conversation_id", "La conversación seleccionada no existe")
		}
		now := s.clock.Now().UTC()
		m := &types.WhatsappMessage{
			ConversationID: conv.ID,
			MessageID:      "msg_" + messageID,
			Type:           msgType,
			Content:        in.Content,
			MediaURL:       in.MediaURL,
			MediaMimeType:  in.MediaMimeType,
			Direction:      wa.DirectionOutgoing,
			FromMe:         true,
			SenderPhone:    conv.ContactPhone,
			SentByAgentID:  &agentID,
			Status:         wa.StatusPending,
			SentAt:         now,
		}
		if _, err := s.messageRepo.Create(inner, m); err != nil {
			return err
		}
		if err := s.conversationRepo.UpdateFields(inner, conv.ID, map[string]interface{}{
			"last_message_at": now,
			"unread":          false,
			"unread_count":    0,
		}); err != nil {
			return err
		}
		out, err = s.messageRepo.GetByID(inner, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncWhatsappMessage(wa.DirectionOutgoing, out.Type)
	s.notifier.MessageCreated(ctx, out)
	return out, nil
}

func validateIncoming(in IncomingMessage) error {
	verr := apierr.NewValidation()
	if strings.TrimSpace(in.MessageID) == "" {
		verr.Add("message_id", "El message_id es obligatorio")
	}
	if strings.TrimSpace(in.ContactPhone) == "" {
		verr.Add("contact_phone", "El teléfono del contacto es obligatorio")
	}
	if in.Type == "" {
		verr.Add("type", "El tipo de mensaje es obligatorio")
	} else if !wa.IsValidMessageType(in.Type) {
		verr.Add("type", "El tipo de mensaje no es válido")
	}
	if in.File == nil && strings.TrimSpace(in.Content) == "" {
		verr.Add("content", "El contenido es obligatorio")
	}
	if in.File != nil && in.File.Size > MaxMediaBytes {
		verr.Add("file", "El archivo no puede superar 50 MB")
	}
	return verr.OrNil()
}

// mediaKey places an attachment under whatsapp/YYYY/MM/ with a random name,
// keeping the original extension when one can be derived.
func mediaKey(now time.Time, f *IncomingFile) string {
	ext := strings.ToLower(filepath.Ext(f.Filename))
	if ext == "" && f.ContentType != "" {
		if exts, err := mime.ExtensionsByType(f.ContentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("whatsapp/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), ext)
}

// storeMedia uploads the attachment and returns its object key. Failures are
// logged and the message is kept without media.
func (s *whatsappMessageService) storeMedia(ctx context.Context, now time.Time, f *IncomingFile) (url, mimeType, key string) {
	if f == nil || f.Body == nil {
		return "", "", ""
	}
	if s.media == nil || !s.media.Enabled() {
		s.metrics.IncMediaUpload("skipped")
		return "", "", ""
	}
	mimeType = f.ContentType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Filename)))
	}
	key = mediaKey(now, f)
	url, err := s.media.Put(ctx, key, mimeType, io.LimitReader(f.Body, MaxMediaBytes+1))
	if err != nil {
		s.metrics.IncMediaUpload("failed")
		s.log.Error("Failed to store attachment", "error", err, "key", key)
		return "", "", ""
	}
	s.metrics.IncMediaUpload("stored")
	s.log.Info("Attachment stored", "key", key, "mime", mimeType, "size", f.Size)
	return url, mimeType, key
}

// discardMedia removes an uploaded attachment whose message was never saved.
// The request context may already be cancelled at this point.
func (s *whatsappMessageService) discardMedia(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.media.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Error("Failed to delete orphaned attachment", "error", err, "key", key)
		return
	}
	s.metrics.IncMediaUpload("discarded")
	s.log.Info("Orphaned attachment deleted", "key", key)
}

func (s *whatsappMessageService) Receive(ctx context.Context, in IncomingMessage) (*ReceiveResult, error) {
	if err := validateIncoming(in); err != nil {
		return nil, err
	}
	in.MessageID = strings.TrimSpace(in.MessageID)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	dbc := dbctx.Context{Ctx: ctx}

	if existing, err := s.messageRepo.GetByMessageID(dbc, in.MessageID); err != nil {
		return nil, err
	} else if existing != nil {
		s.log.Info("Duplicate message ignored", "message_id", in.MessageID)
		return &ReceiveResult{Message: existing, Duplicate: true}, nil
	}

	now := s.clock.Now().UTC()
	sentAt := now
	if in.Timestamp > 0 {
		sentAt = time.Unix(in.Timestamp, 0).UTC()
	}
	mediaURL, mimeType, objectKey := s.storeMedia(ctx, now, in.File)

	res := &ReceiveResult{}
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		conv, err := s.conversationRepo.GetByPhone(inner, in.ContactPhone)
		if err != nil {
			return err
		}
		if conv == nil {
			name := strings.TrimSpace(in.ContactName)
			if name == "" {
				name = DefaultContactName
			}
			conv = &types.WhatsappConversation{
				ContactPhone: in.ContactPhone,
				ContactName:  name,
				Status:       wa.ConversationOpen,
				Unread:       true,
			}
			if _, err := s.conversationRepo.Create(inner, conv); err != nil {
				return err
			}
		}

		senderPhone := strings.TrimSpace(in.SenderPhone)
		if senderPhone == "" {
			senderPhone = in.ContactPhone
		}
		senderName := strings.TrimSpace(in.SenderName)
		if senderName == "" {
			senderName = strings.TrimSpace(in.ContactName)
		}
		m := &types.WhatsappMessage{
			ConversationID: conv.ID,
			MessageID:      in.MessageID,
			Type:           in.Type,
			Content:        in.Content,
			MediaURL:       mediaURL,
			MediaMimeType:  mimeType,
			Direction:      wa.DirectionIncoming,
			FromMe:         false,
			SenderPhone:    senderPhone,
			SenderName:     senderName,
			Status:         wa.StatusDelivered,
			SentAt:         sentAt,
		}
		if _, err := s.messageRepo.Create(inner, m); err != nil {
			return err
		}
		if err := s.conversationRepo.RecordIncoming(inner, conv.ID, sentAt); err != nil {
			return err
		}

		if in.Type == wa.TypeText && strings.TrimSpace(in.Content) != "" {
			candidates, err := s.autoReplyRepo.ListKeywordReplies(inner)
			if err != nil {
				return err
			}
			if match := MatchAutoReply(in.Content, candidates); match != nil {
				suffix, err := randomAlphanumeric(randomIDLength)
				if err != nil {
					return err
				}
				reply := &types.WhatsappMessage{
					ConversationID: conv.ID,
					MessageID:      "auto_" + suffix,
					Type:           wa.TypeText,
					Content:        match.ReplyMessage,
					Direction:      wa.DirectionOutgoing,
					FromMe:         true,
					SenderPhone:    in.ContactPhone,
					IsAutoReply:    true,
					Status:         wa.StatusPending,
					SentAt:         now,
				}
				if _, err := s.messageRepo.Create(inner, reply); err != nil {
					return err
				}
				res.AutoReply = reply
			}
		}

		res.Message, err = s.messageRepo.GetByID(inner, m.ID)
		return err
	})
	if err != nil {
		s.discardMedia(ctx, objectKey)
		if pkgerrors.IsUniqueViolation(err) {
			// Lost a race with a concurrent delivery of the same message.
			existing, gerr := s.messageRepo.GetByMessageID(dbc, in.MessageID)
			if gerr == nil && existing != nil {
				return &ReceiveResult{Message: existing, Duplicate: true}, nil
			}
		}
		return nil, err
	}

	s.metrics.IncWhatsappMessage(wa.DirectionIncoming, res.Message.Type)
	if res.AutoReply != nil {
		s.metrics.IncAutoReplyMatched()
		s.metrics.IncWhatsappMessage(wa.DirectionOutgoing, res.AutoReply.Type)
	}
	s.notifier.MessageReceived(ctx, res.Message, res.AutoReply)
	return res, nil
}

func (s *whatsappMessageService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*types.WhatsappMessage, error) {
	if !wa.IsValidMessageStatus(status) {
		return nil, apierr.Field("status", "El estado del mensaje no es válido")
	}
	var out *types.WhatsappMessage
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if _, err := s.Get(inner, id); err != nil {
			return err
		}
		if err := s.messageRepo.UpdateFields(inner, id, map[string]interface{}{"status": status}); err != nil {
			return err
		}
		var err error
		out, err = s.messageRepo.GetByID(inner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifier.MessageStatus(ctx, out)
	return out, nil
}

func (s *whatsappMessageService) MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, apierr.Field("message_ids", "Debe enviar al menos un mensaje")
	}
	return s.messageRepo.SetStatus(dbctx.Context{Ctx: ctx}, ids, wa.StatusRead)
}

func (s *whatsappMessageService) Delete(ctx context.Context, id uuid.UUID) error {
	return inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if _, err := s.Get(inner, id); err != nil {
			return err
		}
		return s.messageRepo.Delete(inner, id)
	})
}

func (s *whatsappMessageService) PendingOutgoing(ctx context.Context, limit int) ([]*types.WhatsappMessage, error) {
	return s.messageRepo.ListPendingOutgoing(dbctx.Context{Ctx: ctx}, limit)
}

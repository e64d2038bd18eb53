package whatsapp

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/pagination"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type MessageFilter struct {
	ConversationID *uuid.UUID
	Direction      string
	Type           string
}

type MessageRepo interface {
	Create(dbc dbctx.Context, m *types.WhatsappMessage) (*types.WhatsappMessage, error)
	List(dbc dbctx.Context, f MessageFilter, p pagination.Params) (*pagination.Result[*types.WhatsappMessage], error)
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error)
	ListMedia(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error)
	ListPendingOutgoing(dbc dbctx.Context, limit int) ([]*types.WhatsappMessage, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappMessage, error)
	GetByMessageID(dbc dbctx.Context, messageID string) (*types.WhatsappMessage, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SetStatus(dbc dbctx.Context, ids []uuid.UUID, status string) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteByConversation(dbc dbctx.Context, conversationID uuid.UUID) (int64, error)
	DeleteAll(dbc dbctx.Context) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	repoLog := baseLog.With("repo", "WhatsappMessageRepo")
	return &messageRepo{db: db, log: repoLog}
}

func (r *messageRepo) Create(dbc dbctx.Context, m *types.WhatsappMessage) (*types.WhatsappMessage, error) {
	if m == nil {
		return nil, errors.New("message is nil")
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *messageRepo) List(dbc dbctx.Context, f MessageFilter, p pagination.Params) (*pagination.Result[*types.WhatsappMessage], error) {
	q := dbc.DB(r.db).Model(&types.WhatsappMessage{})
	if f.ConversationID != nil {
		q = q.Where("conversation_id = ?", *f.ConversationID)
	}
	if f.Direction != "" {
		q = q.Where("direction = ?", f.Direction)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	return pagination.Paginate[*types.WhatsappMessage](q, p, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Conversation").Preload("SentByAgent").Order("sent_at ASC")
	})
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error) {
	var out []*types.WhatsappMessage
	if err := dbc.DB(r.db).
		Preload("SentByAgent").
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListMedia(dbc dbctx.Context, conversationID uuid.UUID) ([]*types.WhatsappMessage, error) {
	var out []*types.WhatsappMessage
	if err := dbc.DB(r.db).
		Where("conversation_id = ?", conversationID).
		Where("type IN ?", wa.MediaTypes()).
		Order("sent_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListPendingOutgoing returns queued outgoing messages oldest first, with the
// conversation preloaded for its contact phone.
func (r *messageRepo) ListPendingOutgoing(dbc dbctx.Context, limit int) ([]*types.WhatsappMessage, error) {
	q := dbc.DB(r.db).
		Preload("Conversation").
		Where("direction = ?", wa.DirectionOutgoing).
		Where("status = ?", wa.StatusPending).
		Order("sent_at ASC").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.WhatsappMessage
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappMessage, error) {
	var m types.WhatsappMessage
	err := dbc.DB(r.db).Preload("Conversation").Preload("SentByAgent").Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) GetByMessageID(dbc dbctx.Context, messageID string) (*types.WhatsappMessage, error) {
	var m types.WhatsappMessage
	err := dbc.DB(r.db).Preload("Conversation").Where("message_id = ?", messageID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.WhatsappMessage{}).Where("id = ?", id).Updates(updates).Error
}

func (r *messageRepo) SetStatus(dbc dbctx.Context, ids []uuid.UUID, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Model(&types.WhatsappMessage{}).Where("id IN ?", ids).Update("status", status)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *messageRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.WhatsappMessage{}).Error
}

func (r *messageRepo) DeleteByConversation(dbc dbctx.Context, conversationID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("conversation_id = ?", conversationID).Delete(&types.WhatsappMessage{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *messageRepo) DeleteAll(dbc dbctx.Context) (int64, error) {
	res := dbc.DB(r.db).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&types.WhatsappMessage{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

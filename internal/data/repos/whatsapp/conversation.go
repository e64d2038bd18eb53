package whatsapp

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type ConversationFilter struct {
	Status          string
	AssignedAgentID *uuid.UUID
	OnlyUnread      bool
}

type ConversationRepo interface {
	Create(dbc dbctx.Context, c *types.WhatsappConversation) (*types.WhatsappConversation, error)
	List(dbc dbctx.Context, f ConversationFilter) ([]*types.WhatsappConversation, error)
	ListUnread(dbc dbctx.Context) ([]*types.WhatsappConversation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappConversation, error)
	GetWithMessages(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappConversation, error)
	GetByPhone(dbc dbctx.Context, phone string) (*types.WhatsappConversation, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	RecordIncoming(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	DeleteAll(dbc dbctx.Context) (int64, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	repoLog := baseLog.With("repo", "WhatsappConversationRepo")
	return &conversationRepo{db: db, log: repoLog}
}

func (r *conversationRepo) Create(dbc dbctx.Context, c *types.WhatsappConversation) (*types.WhatsappConversation, error) {
	if c == nil {
		return nil, errors.New("conversation is nil")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *conversationRepo) List(dbc dbctx.Context, f ConversationFilter) ([]*types.WhatsappConversation, error) {
	q := dbc.DB(r.db).Model(&types.WhatsappConversation{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssignedAgentID != nil {
		q = q.Where("assigned_agent_id = ?", *f.AssignedAgentID)
	}
	if f.OnlyUnread {
		q = q.Where("unread = ?", true)
	}
	return r.findWithLast(dbc, q)
}

func (r *conversationRepo) ListUnread(dbc dbctx.Context) ([]*types.WhatsappConversation, error) {
	q := dbc.DB(r.db).Model(&types.WhatsappConversation{}).
		Where("unread = ?", true).
		Where("unread_count > ?", 0)
	return r.findWithLast(dbc, q)
}

// findWithLast runs q newest activity first, preloading lead and agent and
// attaching each conversation's latest message.
func (r *conversationRepo) findWithLast(dbc dbctx.Context, q *gorm.DB) ([]*types.WhatsappConversation, error) {
	out := []*types.WhatsappConversation{}
	if err := q.
		Preload("Lead").
		Preload("AssignedAgent").
		Order("last_message_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	if err := r.attachLastMessages(dbc, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) attachLastMessages(dbc dbctx.Context, convs []*types.WhatsappConversation) error {
	if len(convs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	var msgs []*types.WhatsappMessage
	if err := dbc.DB(r.db).
		Table("whatsapp_messages AS m").
		Select("m.*").
		Where("m.conversation_id IN ?", ids).
		Where("m.sent_at = (SELECT MAX(m2.sent_at) FROM whatsapp_messages m2 WHERE m2.conversation_id = m.conversation_id)").
		Order("m.created_at DESC").
		Find(&msgs).Error; err != nil {
		return err
	}
	last := make(map[uuid.UUID]*types.WhatsappMessage, len(msgs))
	for _, m := range msgs {
		if _, ok := last[m.ConversationID]; !ok {
			last[m.ConversationID] = m
		}
	}
	for _, c := range convs {
		c.LastMessage = last[c.ID]
	}
	return nil
}

func (r *conversationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappConversation, error) {
	var c types.WhatsappConversation
	err := dbc.DB(r.db).Preload("Lead").Preload("AssignedAgent").Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachLastMessages(dbc, []*types.WhatsappConversation{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepo) GetWithMessages(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappConversation, error) {
	var c types.WhatsappConversation
	err := dbc.DB(r.db).
		Preload("Lead").
		Preload("AssignedAgent").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("sent_at ASC")
		}).
		Preload("Messages.SentByAgent").
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepo) GetByPhone(dbc dbctx.Context, phone string) (*types.WhatsappConversation, error) {
	var c types.WhatsappConversation
	err := dbc.DB(r.db).Preload("Lead").Preload("AssignedAgent").Where("contact_phone = ?", phone).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachLastMessages(dbc, []*types.WhatsappConversation{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.WhatsappConversation{}).Where("id = ?", id).Updates(updates).Error
}

// RecordIncoming bumps the unread counter in place so concurrent webhook
// deliveries for one contact do not lose increments.
func (r *conversationRepo) RecordIncoming(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	return dbc.DB(r.db).
		Model(&types.WhatsappConversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unread_count":    gorm.Expr("unread_count + ?", 1),
			"unread":          true,
			"last_message_at": at,
		}).Error
}

func (r *conversationRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.WhatsappConversation{}).Error
}

func (r *conversationRepo) DeleteAll(dbc dbctx.Context) (int64, error) {
	res := dbc.DB(r.db).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&types.WhatsappConversation{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

package whatsapp

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type AutoReplyFilter struct {
	IsActive   *bool
	IsGreeting *bool
}

type AutoReplyRepo interface {
	Create(dbc dbctx.Context, a *types.WhatsappAutoReply) (*types.WhatsappAutoReply, error)
	List(dbc dbctx.Context, f AutoReplyFilter) ([]*types.WhatsappAutoReply, error)
	ListKeywordReplies(dbc dbctx.Context) ([]*types.WhatsappAutoReply, error)
	Greeting(dbc dbctx.Context) (*types.WhatsappAutoReply, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappAutoReply, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SetActive(dbc dbctx.Context, ids []uuid.UUID, active bool) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type autoReplyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAutoReplyRepo(db *gorm.DB, baseLog *logger.Logger) AutoReplyRepo {
	repoLog := baseLog.With("repo", "WhatsappAutoReplyRepo")
	return &autoReplyRepo{db: db, log: repoLog}
}

func byPriority(q *gorm.DB) *gorm.DB {
	return q.Order("priority DESC").Order("created_at ASC")
}

func (r *autoReplyRepo) Create(dbc dbctx.Context, a *types.WhatsappAutoReply) (*types.WhatsappAutoReply, error) {
	if a == nil {
		return nil, errors.New("auto reply is nil")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *autoReplyRepo) List(dbc dbctx.Context, f AutoReplyFilter) ([]*types.WhatsappAutoReply, error) {
	q := dbc.DB(r.db).Model(&types.WhatsappAutoReply{})
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.IsGreeting != nil {
		q = q.Where("is_greeting = ?", *f.IsGreeting)
	}
	out := []*types.WhatsappAutoReply{}
	if err := q.Scopes(byPriority).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListKeywordReplies returns the active, non-greeting replies that carry a
// keyword, highest priority first. This is the matcher's candidate set.
func (r *autoReplyRepo) ListKeywordReplies(dbc dbctx.Context) ([]*types.WhatsappAutoReply, error) {
	out := []*types.WhatsappAutoReply{}
	if err := dbc.DB(r.db).
		Where("is_active = ?", true).
		Where("is_greeting = ?", false).
		Where("trigger_keyword IS NOT NULL AND trigger_keyword <> ''").
		Scopes(byPriority).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *autoReplyRepo) Greeting(dbc dbctx.Context) (*types.WhatsappAutoReply, error) {
	var a types.WhatsappAutoReply
	err := dbc.DB(r.db).
		Where("is_active = ?", true).
		Where("is_greeting = ?", true).
		Scopes(byPriority).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *autoReplyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappAutoReply, error) {
	var a types.WhatsappAutoReply
	err := dbc.DB(r.db).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *autoReplyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.WhatsappAutoReply{}).Where("id = ?", id).Updates(updates).Error
}

func (r *autoReplyRepo) SetActive(dbc dbctx.Context, ids []uuid.UUID, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Model(&types.WhatsappAutoReply{}).Where("id IN ?", ids).Update("is_active", active)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *autoReplyRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.WhatsappAutoReply{}).Error
}

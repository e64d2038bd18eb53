package whatsapp

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
	wa "github.com/yungbote/terrenos-crm-backend/internal/domain/whatsapp"
	"github.com/yungbote/terrenos-crm-backend/internal/pkg/dbctx"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, s *types.WhatsappSession) (*types.WhatsappSession, error)
	List(dbc dbctx.Context) ([]*types.WhatsappSession, error)
	ListConnected(dbc dbctx.Context) ([]*types.WhatsappSession, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappSession, error)
	SessionIDExists(dbc dbctx.Context, sessionID string, exclude *uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "WhatsappSessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (r *sessionRepo) Create(dbc dbctx.Context, s *types.WhatsappSession) (*types.WhatsappSession, error) {
	if s == nil {
		return nil, errors.New("session is nil")
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sessionRepo) List(dbc dbctx.Context) ([]*types.WhatsappSession, error) {
	var out []*types.WhatsappSession
	if err := dbc.DB(r.db).Preload("Agent").Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) ListConnected(dbc dbctx.Context) ([]*types.WhatsappSession, error) {
	var out []*types.WhatsappSession
	if err := dbc.DB(r.db).
		Preload("Agent").
		Where("status = ?", wa.SessionConnected).
		Order("last_activity DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WhatsappSession, error) {
	var s types.WhatsappSession
	err := dbc.DB(r.db).Preload("Agent").Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) SessionIDExists(dbc dbctx.Context, sessionID string, exclude *uuid.UUID) (bool, error) {
	q := dbc.DB(r.db).Model(&types.WhatsappSession{}).Where("session_id = ?", sessionID)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *sessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.WhatsappSession{}).Where("id = ?", id).Updates(updates).Error
}

func (r *sessionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.WhatsappSession{}).Error
}

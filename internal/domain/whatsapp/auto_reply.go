package whatsapp

import (
	"time"

	"github.com/google/uuid"
)

const MaxAutoReplyPriority = 100

// AutoReply is either a greeting (no keyword) or a keyword-triggered reply.
type AutoReply struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TriggerKeyword *string   `gorm:"size:255;column:trigger_keyword" json:"trigger_keyword"`
	ReplyMessage   string    `gorm:"not null;column:reply_message" json:"reply_message"`
	IsActive       bool      `gorm:"not null;index;column:is_active" json:"is_active"`
	IsGreeting     bool      `gorm:"not null;index;column:is_greeting" json:"is_greeting"`
	Priority       int       `gorm:"not null;index;column:priority" json:"priority"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AutoReply) TableName() string { return "whatsapp_auto_replies" }

func (a *AutoReply) Keyword() string {
	if a == nil || a.TriggerKeyword == nil {
		return ""
	}
	return *a.TriggerKeyword
}

func (a *AutoReply) HasKeyword() bool { return a.Keyword() != "" }

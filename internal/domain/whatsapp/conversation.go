package whatsapp

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/crm"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
)

const (
	ConversationOpen     = "open"
	ConversationClosed   = "closed"
	ConversationArchived = "archived"
)

func IsValidConversationStatus(status string) bool {
	switch status {
	case ConversationOpen, ConversationClosed, ConversationArchived:
		return true
	}
	return false
}

// StatusFromSync maps the bridge's chat state onto a conversation status.
// Unknown values map to "".
func StatusFromSync(status string) string {
	switch status {
	case "active", "blocked":
		return ConversationOpen
	case "archived":
		return ConversationArchived
	}
	return ""
}

type Conversation struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ContactPhone      string     `gorm:"uniqueIndex;not null;size:20;column:contact_phone" json:"contact_phone"`
	ContactName       string     `gorm:"size:255;column:contact_name" json:"contact_name"`
	ContactProfilePic string     `gorm:"column:contact_profile_pic" json:"contact_profile_pic"`
	LeadID            *uuid.UUID `gorm:"type:uuid;index;column:lead_id" json:"lead_id"`
	AssignedAgentID   *uuid.UUID `gorm:"type:uuid;index;column:assigned_agent_id" json:"assigned_agent_id"`
	Status            string     `gorm:"not null;size:20;index;column:status" json:"status"`
	Unread            bool       `gorm:"not null;index;column:unread" json:"unread"`
	UnreadCount       int        `gorm:"not null;column:unread_count" json:"unread_count"`
	LastMessageAt     *time.Time `gorm:"index;column:last_message_at" json:"last_message_at"`

	Lead          *crm.Lead  `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	AssignedAgent *user.User `gorm:"foreignKey:AssignedAgentID;references:ID" json:"assigned_agent,omitempty"`
	Messages      []*Message `gorm:"foreignKey:ConversationID;references:ID" json:"messages,omitempty"`
	// LastMessage is filled by the repo, not stored.
	LastMessage *Message `gorm:"-" json:"last_message,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Conversation) TableName() string { return "whatsapp_conversations" }

func (c *Conversation) HasUnreadMessages() bool {
	return c != nil && c.Unread && c.UnreadCount > 0
}

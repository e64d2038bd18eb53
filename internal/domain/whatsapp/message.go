package whatsapp

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
)

const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeDocument = "document"
	TypeSticker  = "sticker"
	TypeLocation = "location"
	TypeContact  = "contact"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

var messageTypes = []string{
	TypeText, TypeImage, TypeVideo, TypeAudio,
	TypeDocument, TypeSticker, TypeLocation, TypeContact,
}

func MessageTypes() []string { return append([]string(nil), messageTypes...) }

func IsValidMessageType(t string) bool {
	for _, v := range messageTypes {
		if v == t {
			return true
		}
	}
	return false
}

func IsValidMessageStatus(s string) bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

func IsValidDirection(d string) bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// MediaTypes are the message types that can carry an attachment.
func MediaTypes() []string {
	return []string{TypeImage, TypeVideo, TypeAudio, TypeDocument}
}

func IsMediaType(t string) bool {
	switch t {
	case TypeImage, TypeVideo, TypeAudio, TypeDocument:
		return true
	}
	return false
}

func TypeIcon(t string) string {
	switch t {
	case TypeImage:
		return "🖼️"
	case TypeVideo:
		return "🎥"
	case TypeAudio:
		return "🎵"
	case TypeDocument:
		return "📄"
	case TypeSticker:
		return "😊"
	case TypeLocation:
		return "📍"
	case TypeContact:
		return "👤"
	default:
		return "💬"
	}
}

type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index;not null;column:conversation_id" json:"conversation_id"`
	MessageID      string     `gorm:"uniqueIndex;not null;size:255;column:message_id" json:"message_id"`
	Type           string     `gorm:"not null;size:20;index;column:type" json:"type"`
	Content        string     `gorm:"column:content" json:"content"`
	MediaURL       string     `gorm:"column:media_url" json:"media_url"`
	MediaMimeType  string     `gorm:"size:255;column:media_mime_type" json:"media_mime_type"`
	Direction      string     `gorm:"not null;size:20;index;column:direction" json:"direction"`
	FromMe         bool       `gorm:"not null;column:from_me" json:"from_me"`
	SenderPhone    string     `gorm:"size:20;column:sender_phone" json:"sender_phone"`
	SenderName     string     `gorm:"size:255;column:sender_name" json:"sender_name"`
	SentByAgentID  *uuid.UUID `gorm:"type:uuid;index;column:sent_by_agent_id" json:"sent_by_agent_id"`
	Status         string     `gorm:"not null;size:20;index;column:status" json:"status"`
	IsAutoReply    bool       `gorm:"not null;column:is_auto_reply" json:"is_auto_reply"`
	SentAt         time.Time  `gorm:"not null;index;column:sent_at" json:"sent_at"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	SentByAgent  *user.User    `gorm:"foreignKey:SentByAgentID;references:ID" json:"sent_by_agent,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Message) TableName() string { return "whatsapp_messages" }

func (m *Message) HasMedia() bool {
	return m != nil && IsMediaType(m.Type) && m.MediaURL != ""
}

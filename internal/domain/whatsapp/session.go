package whatsapp

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
)

const (
	SessionDisconnected = "disconnected"
	SessionConnecting   = "connecting"
	SessionConnected    = "connected"
	SessionQRReady      = "qr_ready"
)

func IsValidSessionStatus(status string) bool {
	switch status {
	case SessionDisconnected, SessionConnecting, SessionConnected, SessionQRReady:
		return true
	}
	return false
}

// Session tracks one WhatsApp Web login driven by the bridge process.
type Session struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    string     `gorm:"uniqueIndex;not null;size:255;column:session_id" json:"session_id"`
	PhoneNumber  string     `gorm:"size:20;column:phone_number" json:"phone_number"`
	QRCode       string     `gorm:"column:qr_code" json:"qr_code"`
	Status       string     `gorm:"not null;size:20;index;column:status" json:"status"`
	AgentID      *uuid.UUID `gorm:"type:uuid;index;column:agent_id" json:"agent_id"`
	LastActivity *time.Time `gorm:"index;column:last_activity" json:"last_activity"`

	Agent *user.User `gorm:"foreignKey:AgentID;references:ID" json:"agent,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Session) TableName() string { return "whatsapp_sessions" }

func (s *Session) HasQR() bool {
	return s != nil && s.Status == SessionQRReady && s.QRCode != ""
}

package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

// SSEClient is one open event stream. Channels is guarded by the hub's lock.
type SSEClient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Channels  map[string]bool
	Outbound  chan SSEMessage
	done      chan struct{}
	closeOnce sync.Once
	Logger    *logger.Logger
}

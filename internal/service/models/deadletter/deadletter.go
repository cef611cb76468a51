package deadletter

import (
	"time"

	"github.com/roms-labs/ingest-svc/internal/service/models/message"
)

// Entry represents a message that exhausted its retry budget or failed
// unretryably and was set aside for operator inspection and replay.
type Entry struct {
	ID             string                 `json:"id"`
	Message        message.InboundMessage `json:"message"`
	Reason         string                 `json:"reason"`
	DeadLetteredAt time.Time              `json:"dead_lettered_at"`
}

package message

import (
	"time"
)

// InboundMessage represents a single notification travelling through the pipeline.
// Exactly one component owns a message at any time: the queue while it waits,
// a worker while it is being processed, the dead letter store once it is dead.
type InboundMessage struct {
	ID           string    `json:"message_id"`
	Payload      []byte    `json:"payload"`
	Source       string    `json:"source"`
	ContentType  string    `json:"content_type"`
	ReceivedAt   time.Time `json:"received_at"`
	AttemptCount int       `json:"attempt_count"`
	LastError    string    `json:"last_error,omitempty"`
	Status       Status    `json:"status"`
}

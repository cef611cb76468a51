package webhooklog

import (
	"time"
)

// WebhookLog is the audit record for one inbound call. It is written before
// the enqueue attempt, so every call is traceable even when rejected.
type WebhookLog struct {
	ID            int64     `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	Source        string    `json:"source"`
	ContentType   string    `json:"content_type"`
	Payload       []byte    `json:"-"`
	Accepted      bool      `json:"accepted"`
	Reason        string    `json:"reason,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
}

// Preview returns the payload truncated to n bytes for list responses.
func (l *WebhookLog) Preview(n int) string {
	if len(l.Payload) <= n {
		return string(l.Payload)
	}

	return string(l.Payload[:n])
}

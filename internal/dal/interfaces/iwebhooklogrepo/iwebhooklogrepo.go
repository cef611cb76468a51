package iwebhooklogrepo

import (
	"context"

	"github.com/roms-labs/ingest-svc/internal/service/models/webhooklog"
)

// IWebhookLogRepository defines the interface for webhook audit log operations.
type IWebhookLogRepository interface {
	// Insert records an inbound call before the enqueue attempt
	Insert(ctx context.Context, log webhooklog.WebhookLog) error

	// List retrieves the most recent log records, newest first
	List(ctx context.Context, limit int) ([]webhooklog.WebhookLog, error)
}

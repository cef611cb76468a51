package memory

import (
	"context"
	"sync"

	"github.com/roms-labs/ingest-svc/internal/service/models/webhooklog"
)

// WebhookLogRepository keeps the most recent audit records in memory.
type WebhookLogRepository struct {
	mu       sync.Mutex
	logs     []webhooklog.WebhookLog
	capacity int
	nextID   int64
}

// NewWebhookLogRepository creates a new in-memory webhook log repository.
func NewWebhookLogRepository(capacity int) *WebhookLogRepository {
	if capacity <= 0 {
		capacity = 1000
	}

	return &WebhookLogRepository{
		capacity: capacity,
	}
}

// Insert records an inbound call, evicting the oldest record when full.
func (r *WebhookLogRepository) Insert(_ context.Context, log webhooklog.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	log.ID = r.nextID

	if len(r.logs) >= r.capacity {
		r.logs = r.logs[1:]
	}
	r.logs = append(r.logs, log)

	return nil
}

// List retrieves the most recent log records, newest first.
func (r *WebhookLogRepository) List(_ context.Context, limit int) ([]webhooklog.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logs := r.logs
	if limit > 0 && len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}

	out := make([]webhooklog.WebhookLog, len(logs))
	for i, log := range logs {
		out[len(logs)-1-i] = log
	}

	return out, nil
}

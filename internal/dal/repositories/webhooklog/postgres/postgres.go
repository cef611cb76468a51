package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/roms-labs/ingest-svc/internal/dal/postgres"
	"github.com/roms-labs/ingest-svc/internal/service/models/webhooklog"
)

// WebhookLogRepository implements the webhook log repository for PostgreSQL.
type WebhookLogRepository struct {
	client *postgres.Client
}

// NewWebhookLogRepository creates a new webhook log repository.
func NewWebhookLogRepository(client *postgres.Client) *WebhookLogRepository {
	return &WebhookLogRepository{
		client: client,
	}
}

// Insert records an inbound call before the enqueue attempt.
func (r *WebhookLogRepository) Insert(ctx context.Context, log webhooklog.WebhookLog) error {
	query, args, err := sq.Insert("webhook_logs").
		Columns(
			"correlation_id",
			"source",
			"content_type",
			"payload",
			"accepted",
			"reason",
			"received_at",
		).
		Values(
			log.CorrelationID,
			log.Source,
			log.ContentType,
			log.Payload,
			log.Accepted,
			log.Reason,
			log.ReceivedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert webhook log: %w", err)
	}

	return nil
}

// List retrieves the most recent log records, newest first.
func (r *WebhookLogRepository) List(ctx context.Context, limit int) ([]webhooklog.WebhookLog, error) {
	builder := sq.Select(
		"id",
		"correlation_id",
		"source",
		"content_type",
		"payload",
		"accepted",
		"reason",
		"received_at",
	).
		From("webhook_logs").
		OrderBy("received_at DESC", "id DESC").
		PlaceholderFormat(sq.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook logs: %w", err)
	}
	defer rows.Close()

	var logs []webhooklog.WebhookLog
	for rows.Next() {
		var log webhooklog.WebhookLog
		err := rows.Scan(
			&log.ID,
			&log.CorrelationID,
			&log.Source,
			&log.ContentType,
			&log.Payload,
			&log.Accepted,
			&log.Reason,
			&log.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook logs: %w", err)
	}

	return logs, nil
}

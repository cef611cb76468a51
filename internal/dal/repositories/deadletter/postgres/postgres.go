package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/ideadletterrepo"
	"github.com/roms-labs/ingest-svc/internal/dal/postgres"
	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
	"github.com/roms-labs/ingest-svc/internal/service/models/message"
)

var columns = []string{
	"id",
	"message_id",
	"payload",
	"source",
	"content_type",
	"received_at",
	"attempt_count",
	"last_error",
	"reason",
	"dead_lettered_at",
}

// DeadLetterRepository implements the dead letter repository for PostgreSQL.
type DeadLetterRepository struct {
	client   *postgres.Client
	capacity int
}

// NewDeadLetterRepository creates a new dead letter repository.
func NewDeadLetterRepository(client *postgres.Client, capacity int) *DeadLetterRepository {
	if capacity <= 0 {
		capacity = 1000
	}

	return &DeadLetterRepository{
		client:   client,
		capacity: capacity,
	}
}

// Insert adds a new dead letter entry and trims the table to capacity.
func (r *DeadLetterRepository) Insert(ctx context.Context, entry deadletter.Entry) error {
	query, args, err := sq.Insert("dead_letters").
		Columns(columns...).
		Values(
			entry.ID,
			entry.Message.ID,
			entry.Message.Payload,
			entry.Message.Source,
			entry.Message.ContentType,
			entry.Message.ReceivedAt,
			entry.Message.AttemptCount,
			entry.Message.LastError,
			entry.Reason,
			entry.DeadLetteredAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert dead letter entry: %w", err)
	}

	return r.trim(ctx)
}

// trim evicts the oldest entries beyond the configured capacity.
func (r *DeadLetterRepository) trim(ctx context.Context) error {
	query, args, err := sq.Delete("dead_letters").
		Where(sq.Expr(
			"id NOT IN (SELECT id FROM dead_letters ORDER BY dead_lettered_at DESC, id DESC LIMIT ?)",
			r.capacity,
		)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build trim query: %w", err)
	}

	if _, err := r.client.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to trim dead letters: %w", err)
	}

	return nil
}

// List retrieves the most recent entries, oldest first.
func (r *DeadLetterRepository) List(ctx context.Context, limit int) ([]deadletter.Entry, error) {
	builder := sq.Select(columns...).
		From("dead_letters").
		OrderBy("dead_lettered_at DESC", "id DESC").
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
		return nil, fmt.Errorf("failed to query dead letters: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	// Newest-first from the database, oldest-first for callers.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Remove deletes an entry by id and returns it.
func (r *DeadLetterRepository) Remove(ctx context.Context, id string) (deadletter.Entry, error) {
	query, args, err := sq.Delete("dead_letters").
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + columnList()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return deadletter.Entry{}, fmt.Errorf("failed to build delete query: %w", err)
	}

	row := r.client.Pool().QueryRow(ctx, query, args...)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return deadletter.Entry{}, ideadletterrepo.ErrNotFound
		}

		return deadletter.Entry{}, fmt.Errorf("failed to remove dead letter entry: %w", err)
	}

	return entry, nil
}

// RemoveAll deletes every entry and returns them for bulk replay.
func (r *DeadLetterRepository) RemoveAll(ctx context.Context) ([]deadletter.Entry, error) {
	query, args, err := sq.Delete("dead_letters").
		Suffix("RETURNING " + columnList()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete query: %w", err)
	}

	rows, err := r.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to remove dead letters: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the current number of entries.
func (r *DeadLetterRepository) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("dead_letters").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.client.Pool().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}

	return count, nil
}

func columnList() string {
	list := ""
	for i, c := range columns {
		if i > 0 {
			list += ", "
		}
		list += c
	}

	return list
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (deadletter.Entry, error) {
	var entry deadletter.Entry
	var msg message.InboundMessage

	err := row.Scan(
		&entry.ID,
		&msg.ID,
		&msg.Payload,
		&msg.Source,
		&msg.ContentType,
		&msg.ReceivedAt,
		&msg.AttemptCount,
		&msg.LastError,
		&entry.Reason,
		&entry.DeadLetteredAt,
	)
	if err != nil {
		return deadletter.Entry{}, err
	}

	msg.Status = message.StatusDead
	entry.Message = msg

	return entry, nil
}

func scanEntries(rows pgx.Rows) ([]deadletter.Entry, error) {
	var entries []deadletter.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dead letter entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead letters: %w", err)
	}

	return entries, nil
}

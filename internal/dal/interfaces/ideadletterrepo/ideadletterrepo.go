package ideadletterrepo

import (
	"context"

	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
)

// IDeadLetterRepository defines the interface for dead letter operations.
// Implementations are capped: Insert evicts the oldest entry once the
// configured capacity is reached.
type IDeadLetterRepository interface {
	// Insert adds a new dead letter entry
	Insert(ctx context.Context, entry deadletter.Entry) error

	// List retrieves the most recent entries, oldest first. limit <= 0 returns all
	List(ctx context.Context, limit int) ([]deadletter.Entry, error)

	// Remove deletes an entry by id and returns it for replay
	Remove(ctx context.Context, id string) (deadletter.Entry, error)

	// RemoveAll deletes every entry and returns them for bulk replay
	RemoveAll(ctx context.Context) ([]deadletter.Entry, error)

	// Count returns the current number of entries
	Count(ctx context.Context) (int, error)
}

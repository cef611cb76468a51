package memory

import (
	"context"
	"sync"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/ideadletterrepo"
	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
)

// DeadLetterRepository keeps dead letter entries in memory, capped at a
// fixed capacity. The oldest entry is evicted when the cap is reached.
type DeadLetterRepository struct {
	mu       sync.Mutex
	entries  []deadletter.Entry
	capacity int
}

// NewDeadLetterRepository creates a new in-memory dead letter repository.
func NewDeadLetterRepository(capacity int) *DeadLetterRepository {
	if capacity <= 0 {
		capacity = 1000
	}

	return &DeadLetterRepository{
		capacity: capacity,
	}
}

// Insert adds a new dead letter entry, evicting the oldest when full.
func (r *DeadLetterRepository) Insert(_ context.Context, entry deadletter.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.capacity {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, entry)

	return nil
}

// List retrieves the most recent entries, oldest first.
func (r *DeadLetterRepository) List(_ context.Context, limit int) ([]deadletter.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	out := make([]deadletter.Entry, len(entries))
	copy(out, entries)

	return out, nil
}

// Remove deletes an entry by id and returns it.
func (r *DeadLetterRepository) Remove(_ context.Context, id string) (deadletter.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.entries {
		if entry.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)

			return entry, nil
		}
	}

	return deadletter.Entry{}, ideadletterrepo.ErrNotFound
}

// RemoveAll deletes every entry and returns them in insertion order.
func (r *DeadLetterRepository) RemoveAll(_ context.Context) ([]deadletter.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.entries
	r.entries = nil

	return entries, nil
}

// Count returns the current number of entries.
func (r *DeadLetterRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries), nil
}

package pipelinesvc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
	"github.com/roms-labs/ingest-svc/internal/service/models/message"
)

// ErrQueueFull is returned when a replayed message cannot be requeued. The
// entry stays in the dead letter store.
var ErrQueueFull = errors.New("queue is full")

// DeadLetters returns up to limit entries, oldest first. limit <= 0 returns
// every entry.
func (s *PipelineService) DeadLetters(ctx context.Context, limit int) ([]deadletter.Entry, error) {
	entries, err := s.dlqRepo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Replay removes the entry and puts its message back on the queue with a
// fresh attempt counter, so it gets the full retry budget again.
func (s *PipelineService) Replay(ctx context.Context, entryID string) error {
	entry, err := s.dlqRepo.Remove(ctx, entryID)
	if err != nil {
		return err
	}

	if !s.queue.TryPush(resetForReplay(entry)) {
		if insertErr := s.dlqRepo.Insert(ctx, entry); insertErr != nil {
			slog.Error("Failed to restore dead letter entry", "entry_id", entry.ID, "error", insertErr)
		}

		return ErrQueueFull
	}

	s.refreshDeadLetterSize(ctx)

	slog.Info("Dead letter replayed", "entry_id", entry.ID)

	return nil
}

// ReplayAll drains the dead letter store back onto the queue and returns
// how many messages were requeued. Entries that do not fit are restored.
func (s *PipelineService) ReplayAll(ctx context.Context) (int, error) {
	entries, err := s.dlqRepo.RemoveAll(ctx)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, entry := range entries {
		if s.queue.TryPush(resetForReplay(entry)) {
			requeued++

			continue
		}

		if insertErr := s.dlqRepo.Insert(ctx, entry); insertErr != nil {
			slog.Error("Failed to restore dead letter entry", "entry_id", entry.ID, "error", insertErr)
		}
	}

	s.refreshDeadLetterSize(ctx)

	slog.Info("Dead letters replayed", "requeued", requeued, "total", len(entries))

	return requeued, nil
}

func resetForReplay(entry deadletter.Entry) message.InboundMessage {
	msg := entry.Message
	msg.AttemptCount = 0
	msg.LastError = ""
	msg.Status = message.StatusQueued

	return msg
}

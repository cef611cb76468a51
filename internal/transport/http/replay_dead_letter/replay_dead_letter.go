package replaydeadletter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/ideadletterrepo"
	"github.com/roms-labs/ingest-svc/internal/service/services/pipelinesvc"
)

// service is an interface for the service layer.
type service interface {
	Replay(ctx context.Context, entryID string) error
}

type replayDeadLetterResponse struct {
	Success bool   `json:"success"`
	EntryID string `json:"entry_id"`
}

// ReplayDeadLetter requeues a single dead letter entry.
func ReplayDeadLetter(w http.ResponseWriter, r *http.Request, service service) {
	entryID := chi.URLParam(r, "entryID")
	if entryID == "" {
		http.Error(w, "entry id is required", http.StatusBadRequest)

		return
	}

	if err := service.Replay(r.Context(), entryID); err != nil {
		switch {
		case errors.Is(err, ideadletterrepo.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, pipelinesvc.ErrQueueFull):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		slog.Error("Error replaying dead letter", "entry_id", entryID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(replayDeadLetterResponse{
		Success: true,
		EntryID: entryID,
	}); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

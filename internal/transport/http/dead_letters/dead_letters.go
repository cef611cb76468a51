package deadletters

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
)

// service is an interface for the service layer.
type service interface {
	DeadLetters(ctx context.Context, limit int) ([]deadletter.Entry, error)
}

type listDeadLettersRequest struct {
	Limit int `schema:"limit,omitempty"`
}

type listDeadLettersResponse struct {
	Count   int                `json:"count"`
	Entries []deadletter.Entry `json:"entries"`
}

// ListDeadLetters returns dead letter entries for operator inspection.
func ListDeadLetters(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	query := &listDeadLettersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	entries, err := service.DeadLetters(r.Context(), query.Limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing dead letters", "error", err)

		return
	}

	if entries == nil {
		entries = []deadletter.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listDeadLettersResponse{
		Count:   len(entries),
		Entries: entries,
	}); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

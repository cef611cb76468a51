package retryfailed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// service is an interface for the service layer.
type service interface {
	ReplayAll(ctx context.Context) (int, error)
}

type retryFailedResponse struct {
	RequeuedCount int `json:"requeued_count"`
}

// RetryFailed requeues every dead letter entry for a fresh attempt cycle.
func RetryFailed(w http.ResponseWriter, r *http.Request, service service) {
	requeued, err := service.ReplayAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error replaying dead letters", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(retryFailedResponse{RequeuedCount: requeued}); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

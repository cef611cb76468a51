package webhooklogs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"

	"github.com/roms-labs/ingest-svc/internal/service/models/webhooklog"
)

// previewBytes caps how much payload each list row carries.
const previewBytes = 200

// service is an interface for the service layer.
type service interface {
	Logs(ctx context.Context, limit int) ([]webhooklog.WebhookLog, error)
}

type listWebhookLogsRequest struct {
	Limit int `schema:"limit,omitempty"`
}

type webhookLogInResponse struct {
	ID             int64     `json:"id"`
	CorrelationID  string    `json:"correlation_id"`
	Source         string    `json:"source"`
	ContentType    string    `json:"content_type"`
	PayloadPreview string    `json:"payload_preview"`
	Accepted       bool      `json:"accepted"`
	Reason         string    `json:"reason,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

type listWebhookLogsResponse struct {
	Count int                    `json:"count"`
	Logs  []webhookLogInResponse `json:"logs"`
}

// ListWebhookLogs returns the most recent audit records, newest first.
func ListWebhookLogs(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	query := &listWebhookLogsRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	logs, err := service.Logs(r.Context(), query.Limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing webhook logs", "error", err)

		return
	}

	rows := make([]webhookLogInResponse, len(logs))
	for i := range logs {
		rows[i] = webhookLogInResponse{
			ID:             logs[i].ID,
			CorrelationID:  logs[i].CorrelationID,
			Source:         logs[i].Source,
			ContentType:    logs[i].ContentType,
			PayloadPreview: logs[i].Preview(previewBytes),
			Accepted:       logs[i].Accepted,
			Reason:         logs[i].Reason,
			ReceivedAt:     logs[i].ReceivedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listWebhookLogsResponse{
		Count: len(rows),
		Logs:  rows,
	}); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

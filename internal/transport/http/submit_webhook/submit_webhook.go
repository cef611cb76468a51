package submitwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roms-labs/ingest-svc/internal/service/services/ingestsvc"
)

// maxBodyBytes bounds how much of a request body is ever read. The service
// applies its own configured limit on top of this hard cap.
const maxBodyBytes = 4 << 20

// service is an interface for the service layer.
type service interface {
	Accept(ctx context.Context, payload []byte, meta ingestsvc.Metadata) (ingestsvc.AcceptResult, error)
}

// submitWebhookResponse is what the caller gets back. Queued means durably
// queued for an attempt, never processed.
type submitWebhookResponse struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	CorrelationID  string  `json:"correlation_id"`
	Queued         bool    `json:"queued"`
	ResponseTimeMS float64 `json:"response_time_ms"`
	QueueSize      int     `json:"queue_size"`
}

// SubmitWebhook handles one inbound notification.
func SubmitWebhook(w http.ResponseWriter, r *http.Request, service service) {
	start := time.Now()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		slog.Error("Error reading request body for submit", "error", err)

		return
	}

	meta := ingestsvc.Metadata{
		Source:      "http",
		ContentType: r.Header.Get("Content-Type"),
		Signature:   r.Header.Get("X-Webhook-Signature"),
	}

	result, err := service.Accept(r.Context(), payload, meta)

	resp := submitWebhookResponse{
		Success:        result.Accepted,
		Message:        resultMessage(result),
		CorrelationID:  result.CorrelationID,
		Queued:         result.Accepted,
		ResponseTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
		QueueSize:      result.QueueSize,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

func resultMessage(result ingestsvc.AcceptResult) string {
	if result.Accepted {
		return "webhook accepted"
	}

	return result.Reason
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusAccepted
	case errors.Is(err, ingestsvc.ErrQueueFull), errors.Is(err, ingestsvc.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, ingestsvc.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ingestsvc.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

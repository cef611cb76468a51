package queuestats

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/roms-labs/ingest-svc/internal/stats"
)

// healthySuccessRate is the floor below which the pipeline reports degraded.
const healthySuccessRate = 0.95

// service is an interface for the service layer.
type service interface {
	Snapshot() stats.Snapshot
}

type queueStatsResponse struct {
	Status string         `json:"status"`
	Stats  stats.Snapshot `json:"stats"`
}

// QueueStats reports the pipeline counters and a coarse health verdict.
func QueueStats(w http.ResponseWriter, _ *http.Request, service service) {
	snapshot := service.Snapshot()

	status := "healthy"
	if snapshot.SuccessRate <= healthySuccessRate {
		status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(queueStatsResponse{
		Status: status,
		Stats:  snapshot,
	}); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

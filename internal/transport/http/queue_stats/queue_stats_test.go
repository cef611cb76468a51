package queuestats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roms-labs/ingest-svc/internal/stats"
)

type stubService struct {
	snapshot stats.Snapshot
}

func (s *stubService) Snapshot() stats.Snapshot {
	return s.snapshot
}

func doQueueStats(t *testing.T, snapshot stats.Snapshot) queueStatsResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/webhooks/queue/stats", nil)
	rec := httptest.NewRecorder()

	QueueStats(rec, req, &stubService{snapshot: snapshot})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp queueStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp
}

func TestQueueStats_Healthy(t *testing.T) {
	resp := doQueueStats(t, stats.Snapshot{
		TotalReceived:  100,
		TotalProcessed: 99,
		SuccessRate:    0.99,
		IsRunning:      true,
	})

	assert.Equal(t, "healthy", resp.Status)
	assert.EqualValues(t, 100, resp.Stats.TotalReceived)
	assert.True(t, resp.Stats.IsRunning)
}

func TestQueueStats_Degraded(t *testing.T) {
	resp := doQueueStats(t, stats.Snapshot{
		TotalProcessed:    80,
		TotalDeadLettered: 20,
		SuccessRate:       0.8,
	})

	assert.Equal(t, "degraded", resp.Status)
}

func TestQueueStats_EmptyPipelineIsHealthy(t *testing.T) {
	resp := doQueueStats(t, stats.Snapshot{SuccessRate: 1.0})

	assert.Equal(t, "healthy", resp.Status)
}

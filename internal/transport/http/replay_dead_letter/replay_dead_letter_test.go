package replaydeadletter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/ideadletterrepo"
	"github.com/roms-labs/ingest-svc/internal/service/services/pipelinesvc"
)

type stubService struct {
	err   error
	gotID string
}

func (s *stubService) Replay(_ context.Context, entryID string) error {
	s.gotID = entryID

	return s.err
}

func serve(svc service, target string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Post("/api/webhooks/dead-letters/{entryID}/replay", func(w http.ResponseWriter, r *http.Request) {
		ReplayDeadLetter(w, r, svc)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))

	return rec
}

func TestReplayDeadLetter(t *testing.T) {
	svc := &stubService{}

	rec := serve(svc, "/api/webhooks/dead-letters/msg-42/replay")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "msg-42", svc.gotID)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"entry_id":"msg-42"`)
}

func TestReplayDeadLetter_UnknownEntry(t *testing.T) {
	svc := &stubService{err: ideadletterrepo.ErrNotFound}

	rec := serve(svc, "/api/webhooks/dead-letters/missing/replay")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplayDeadLetter_QueueFull(t *testing.T) {
	svc := &stubService{err: pipelinesvc.ErrQueueFull}

	rec := serve(svc, "/api/webhooks/dead-letters/msg-42/replay")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

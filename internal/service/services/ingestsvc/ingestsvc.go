package ingestsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/iwebhooklogrepo"
	"github.com/roms-labs/ingest-svc/internal/queue"
	"github.com/roms-labs/ingest-svc/internal/service/models/message"
	"github.com/roms-labs/ingest-svc/internal/service/models/webhooklog"
	"github.com/roms-labs/ingest-svc/internal/stats"
	"github.com/roms-labs/ingest-svc/pkg/ids"
)

const defaultMaxPayloadBytes = 1 << 20

// Metadata carries the transport-level attributes of a submission.
type Metadata struct {
	Source      string
	ContentType string
	Signature   string
}

// AcceptResult is what the boundary reports back to the caller. Accepted
// means durably queued for an attempt, never processed.
type AcceptResult struct {
	Accepted      bool
	Reason        string
	CorrelationID string
	QueueSize     int
}

// IngestService is the ingress boundary. It runs cheap structural checks,
// writes the audit record and hands the message to the queue without ever
// blocking the caller.
type IngestService struct {
	queue           *queue.Queue
	logRepo         iwebhooklogrepo.IWebhookLogRepository
	stats           *stats.Collector
	secret          string
	maxPayloadBytes int

	shuttingDown atomic.Bool
}

// option is a function that configures the IngestService.
type option func(*IngestService)

// MustNewIngestService creates a new IngestService.
func MustNewIngestService(opts ...option) *IngestService {
	s := &IngestService{
		maxPayloadBytes: defaultMaxPayloadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.queue == nil {
		panic("ingestsvc: queue is required")
	}
	if s.logRepo == nil {
		panic("ingestsvc: webhook log repository is required")
	}
	if s.stats == nil {
		s.stats = stats.New()
	}

	return s
}

// WithQueue sets the message queue for the IngestService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithQueue(q *queue.Queue) option {
	return func(s *IngestService) {
		s.queue = q
	}
}

// WithWebhookLogRepository sets the audit log repository for the IngestService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWebhookLogRepository(repo iwebhooklogrepo.IWebhookLogRepository) option {
	return func(s *IngestService) {
		s.logRepo = repo
	}
}

// WithStats sets the stats collector for the IngestService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStats(c *stats.Collector) option {
	return func(s *IngestService) {
		s.stats = c
	}
}

// WithSecret enables HMAC-SHA256 signature verification with the given key.
// An empty secret disables verification.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSecret(secret string) option {
	return func(s *IngestService) {
		s.secret = secret
	}
}

// WithMaxPayloadSize sets the payload size limit in bytes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMaxPayloadSize(n int) option {
	return func(s *IngestService) {
		if n > 0 {
			s.maxPayloadBytes = n
		}
	}
}

// Accept validates and enqueues one submission. The audit record is written
// before the enqueue attempt, so every call is traceable even when rejected.
// Accept never blocks on downstream state: a full queue is reported as
// ErrQueueFull immediately.
func (s *IngestService) Accept(ctx context.Context, payload []byte, meta Metadata) (AcceptResult, error) {
	result := AcceptResult{CorrelationID: ids.NewCorrelationID()}

	if s.shuttingDown.Load() {
		result.Reason = "shutting_down"

		return result, ErrShuttingDown
	}

	if err := s.validate(payload, meta); err != nil {
		result.Reason = rejectionReason(err)
		s.audit(ctx, result.CorrelationID, payload, meta, false, result.Reason)

		slog.Warn("Submission rejected", "correlation_id", result.CorrelationID, "reason", result.Reason)

		return result, err
	}

	s.audit(ctx, result.CorrelationID, payload, meta, true, "")

	msg := message.InboundMessage{
		ID:          result.CorrelationID,
		Payload:     payload,
		Source:      meta.Source,
		ContentType: meta.ContentType,
		ReceivedAt:  time.Now().UTC(),
		Status:      message.StatusQueued,
	}

	if !s.queue.TryPush(msg) {
		result.Reason = "queue_full"
		result.QueueSize = s.queue.Depth()

		slog.Warn("Submission rejected", "correlation_id", result.CorrelationID, "reason", result.Reason)

		return result, ErrQueueFull
	}

	s.stats.RecordReceived()
	result.Accepted = true
	result.QueueSize = s.queue.Depth()

	return result, nil
}

// Logs returns the most recent audit records, newest first.
func (s *IngestService) Logs(ctx context.Context, limit int) ([]webhooklog.WebhookLog, error) {
	return s.logRepo.List(ctx, limit)
}

// Stop makes every subsequent Accept fail fast with ErrShuttingDown.
func (s *IngestService) Stop() {
	s.shuttingDown.Store(true)
}

func (s *IngestService) validate(payload []byte, meta Metadata) error {
	if len(payload) == 0 {
		return ErrInvalidPayload
	}
	if len(payload) > s.maxPayloadBytes {
		return ErrPayloadTooLarge
	}
	if !s.verifySignature(payload, meta.Signature) {
		return ErrInvalidSignature
	}

	return nil
}

// verifySignature checks the hex-encoded HMAC-SHA256 of the payload. A
// "sha256=" prefix on the header value is tolerated.
func (s *IngestService) verifySignature(payload []byte, signature string) bool {
	if s.secret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	provided := strings.TrimPrefix(signature, "sha256=")

	return hmac.Equal([]byte(expected), []byte(provided))
}

func (s *IngestService) audit(ctx context.Context, correlationID string, payload []byte, meta Metadata, accepted bool, reason string) {
	err := s.logRepo.Insert(ctx, webhooklog.WebhookLog{
		CorrelationID: correlationID,
		Source:        meta.Source,
		ContentType:   meta.ContentType,
		Payload:       payload,
		Accepted:      accepted,
		Reason:        reason,
		ReceivedAt:    time.Now().UTC(),
	})
	if err != nil {
		slog.Error("Failed to insert webhook log", "correlation_id", correlationID, "error", err)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "invalid_payload"
	}
}

package pipelinesvc

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dlmemory "github.com/roms-labs/ingest-svc/internal/dal/repositories/deadletter/memory"
	logmemory "github.com/roms-labs/ingest-svc/internal/dal/repositories/webhooklog/memory"
	"github.com/roms-labs/ingest-svc/internal/queue"
	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
	"github.com/roms-labs/ingest-svc/internal/service/models/message"
	"github.com/roms-labs/ingest-svc/internal/service/services/ingestsvc"
	"github.com/roms-labs/ingest-svc/internal/service/services/processorsvc"
	"github.com/roms-labs/ingest-svc/internal/stats"
)

// stubProcessor records every call and delegates the outcome to fn.
// attempt is 1-based per message id.
type stubProcessor struct {
	mu       sync.Mutex
	attempts map[string]int
	calls    []message.InboundMessage
	fn       func(ctx context.Context, msg message.InboundMessage, attempt int) error
}

func newStubProcessor(fn func(ctx context.Context, msg message.InboundMessage, attempt int) error) *stubProcessor {
	return &stubProcessor{
		attempts: make(map[string]int),
		fn:       fn,
	}
}

func (p *stubProcessor) Process(ctx context.Context, msg message.InboundMessage) error {
	p.mu.Lock()
	p.attempts[msg.ID]++
	attempt := p.attempts[msg.ID]
	p.calls = append(p.calls, msg)
	fn := p.fn
	p.mu.Unlock()

	if fn == nil {
		return nil
	}

	return fn(ctx, msg, attempt)
}

func (p *stubProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.calls)
}

func (p *stubProcessor) lastCall() message.InboundMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls[len(p.calls)-1]
}

type testPipeline struct {
	svc     *PipelineService
	queue   *queue.Queue
	dlqRepo *dlmemory.DeadLetterRepository
	stats   *stats.Collector
}

func newTestPipeline(t *testing.T, proc *stubProcessor, capacity, workers int, opts ...option) *testPipeline {
	t.Helper()

	collector := stats.New()
	q := queue.New(capacity, 20*time.Millisecond, queue.WithDepthReporter(collector))
	dlqRepo := dlmemory.NewDeadLetterRepository(1000)

	all := append([]option{
		WithQueue(q),
		WithProcessor(proc),
		WithDeadLetterRepository(dlqRepo),
		WithStats(collector),
		WithWorkerCount(workers),
		WithRetryPolicy(3, 10*time.Millisecond, 100*time.Millisecond),
	}, opts...)

	return &testPipeline{
		svc:     MustNewPipelineService(all...),
		queue:   q,
		dlqRepo: dlqRepo,
		stats:   collector,
	}
}

func newTestMessage(id string) message.InboundMessage {
	return message.InboundMessage{
		ID:          id,
		Payload:     []byte(`{"order_number": "` + id + `"}`),
		Source:      "http",
		ContentType: "application/json",
		ReceivedAt:  time.Now().UTC(),
		Status:      message.StatusQueued,
	}
}

func (p *testPipeline) shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.svc.Shutdown(ctx))
}

func TestPipeline_ProcessesMessages(t *testing.T) {
	proc := newStubProcessor(nil)
	p := newTestPipeline(t, proc, 10, 3)

	p.svc.Start(context.Background())
	for i := 0; i < 5; i++ {
		require.True(t, p.queue.TryPush(newTestMessage(fmt.Sprintf("msg-%d", i))))
	}

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalProcessed == 5
	}, time.Second, 10*time.Millisecond)

	snap := p.stats.Snapshot()
	assert.EqualValues(t, 0, snap.TotalDeadLettered)
	assert.EqualValues(t, 0, snap.TotalFailedTransient)

	p.shutdown(t)
}

func TestPipeline_TransientFailuresAreRetriedThenSucceed(t *testing.T) {
	proc := newStubProcessor(func(_ context.Context, _ message.InboundMessage, attempt int) error {
		if attempt <= 2 {
			return &processorsvc.TransientError{Reason: "storage unavailable"}
		}

		return nil
	})
	p := newTestPipeline(t, proc, 10, 2)

	p.svc.Start(context.Background())
	require.True(t, p.queue.TryPush(newTestMessage("msg-retry")))

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalProcessed == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, proc.callCount())
	assert.Equal(t, 3, proc.lastCall().AttemptCount)

	snap := p.stats.Snapshot()
	assert.EqualValues(t, 2, snap.TotalFailedTransient)
	assert.EqualValues(t, 0, snap.TotalDeadLettered)

	p.shutdown(t)
}

func TestPipeline_PermanentFailureGoesStraightToDeadLetter(t *testing.T) {
	proc := newStubProcessor(func(_ context.Context, _ message.InboundMessage, _ int) error {
		return &processorsvc.PermanentError{Reason: "payload has no order number"}
	})
	p := newTestPipeline(t, proc, 10, 2)

	p.svc.Start(context.Background())
	require.True(t, p.queue.TryPush(newTestMessage("msg-perm")))

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalDeadLettered == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, proc.callCount())

	entries, err := p.svc.DeadLetters(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "msg-perm", entries[0].ID)
	assert.Equal(t, 1, entries[0].Message.AttemptCount)
	assert.Contains(t, entries[0].Reason, "payload has no order number")

	snap := p.stats.Snapshot()
	assert.EqualValues(t, 0, snap.TotalFailedTransient)
	assert.EqualValues(t, 0, snap.TotalProcessed)

	p.shutdown(t)
}

func TestPipeline_RetriesExhaustedAfterMaxRetries(t *testing.T) {
	proc := newStubProcessor(func(_ context.Context, _ message.InboundMessage, _ int) error {
		return &processorsvc.TransientError{Reason: "storage unavailable"}
	})
	p := newTestPipeline(t, proc, 10, 2, WithRetryPolicy(2, 10*time.Millisecond, 50*time.Millisecond))

	p.svc.Start(context.Background())
	require.True(t, p.queue.TryPush(newTestMessage("msg-doomed")))

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalDeadLettered == 1
	}, 2*time.Second, 10*time.Millisecond)

	// max_retries of 2 means one initial attempt plus two retries.
	assert.Equal(t, 3, proc.callCount())

	entries, err := p.svc.DeadLetters(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Message.AttemptCount)
	assert.Contains(t, entries[0].Reason, "retries exhausted")
	assert.Contains(t, entries[0].Message.LastError, "storage unavailable")

	snap := p.stats.Snapshot()
	assert.EqualValues(t, 3, snap.TotalFailedTransient)
	assert.EqualValues(t, 0, snap.TotalProcessed)

	p.shutdown(t)
}

func TestPipeline_TimeoutCountsAsTransient(t *testing.T) {
	proc := newStubProcessor(func(ctx context.Context, _ message.InboundMessage, attempt int) error {
		if attempt == 1 {
			<-ctx.Done()

			return ctx.Err()
		}

		return nil
	})
	p := newTestPipeline(t, proc, 10, 2, WithProcessTimeout(30*time.Millisecond))

	p.svc.Start(context.Background())
	require.True(t, p.queue.TryPush(newTestMessage("msg-slow")))

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalProcessed == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap := p.stats.Snapshot()
	assert.EqualValues(t, 1, snap.TotalFailedTransient)
	assert.EqualValues(t, 0, snap.TotalDeadLettered)
	assert.Equal(t, 2, proc.callCount())

	p.shutdown(t)
}

func TestPipeline_ProcessorPanicIsRetried(t *testing.T) {
	proc := newStubProcessor(func(_ context.Context, _ message.InboundMessage, attempt int) error {
		if attempt == 1 {
			panic("boom")
		}

		return nil
	})
	p := newTestPipeline(t, proc, 10, 2)

	p.svc.Start(context.Background())
	require.True(t, p.queue.TryPush(newTestMessage("msg-panic")))

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalProcessed == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.EqualValues(t, 1, p.stats.Snapshot().TotalFailedTransient)

	p.shutdown(t)
}

func TestPipeline_CapacityOverflowEndsInDeadLetters(t *testing.T) {
	proc := newStubProcessor(func(_ context.Context, _ message.InboundMessage, _ int) error {
		return &processorsvc.PermanentError{Reason: "unparseable"}
	})
	p := newTestPipeline(t, proc, 10, 2)

	accepted, rejected := 0, 0
	for i := 0; i < 15; i++ {
		if p.queue.TryPush(newTestMessage(fmt.Sprintf("msg-%d", i))) {
			accepted++
		} else {
			rejected++
		}
	}
	assert.Equal(t, 10, accepted)
	assert.Equal(t, 5, rejected)

	p.svc.Start(context.Background())

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalDeadLettered == 10
	}, 2*time.Second, 10*time.Millisecond)

	count, err := p.dlqRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.EqualValues(t, 0, p.stats.Snapshot().TotalProcessed)

	p.shutdown(t)
}

func TestPipeline_EveryAcceptedMessageIsAccountedFor(t *testing.T) {
	proc := newStubProcessor(func(_ context.Context, msg message.InboundMessage, attempt int) error {
		switch {
		case bytes.Contains(msg.Payload, []byte("garbled")):
			return &processorsvc.PermanentError{Reason: "unparseable"}
		case bytes.Contains(msg.Payload, []byte("flaky")) && attempt == 1:
			return &processorsvc.TransientError{Reason: "storage unavailable"}
		default:
			return nil
		}
	})
	p := newTestPipeline(t, proc, 50, 4)

	ingest := ingestsvc.MustNewIngestService(
		ingestsvc.WithQueue(p.queue),
		ingestsvc.WithWebhookLogRepository(logmemory.NewWebhookLogRepository(100)),
		ingestsvc.WithStats(p.stats),
	)

	p.svc.Start(context.Background())

	const total = 20
	for i := 0; i < total; i++ {
		kind := "ok"
		switch {
		case i%5 == 0:
			kind = "garbled"
		case i%3 == 0:
			kind = "flaky"
		}

		_, err := ingest.Accept(context.Background(), []byte(fmt.Sprintf(`{"kind": "%s", "n": %d}`, kind, i)), ingestsvc.Metadata{
			Source:      "http",
			ContentType: "application/json",
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		snap := p.stats.Snapshot()

		return snap.TotalProcessed+snap.TotalDeadLettered == total
	}, 3*time.Second, 10*time.Millisecond)

	// Every accepted message ends up processed or dead-lettered, never lost.
	snap := p.stats.Snapshot()
	assert.EqualValues(t, total, snap.TotalReceived)
	assert.EqualValues(t, 16, snap.TotalProcessed)
	assert.EqualValues(t, 4, snap.TotalDeadLettered)
	assert.Equal(t, 0, p.queue.Depth())

	p.shutdown(t)
}

func TestPipeline_ShutdownDrainsUnfinishedToDeadLetter(t *testing.T) {
	proc := newStubProcessor(func(ctx context.Context, _ message.InboundMessage, _ int) error {
		<-ctx.Done()

		return ctx.Err()
	})
	p := newTestPipeline(t, proc, 10, 2, WithProcessTimeout(time.Minute))

	for i := 0; i < 7; i++ {
		require.True(t, p.queue.TryPush(newTestMessage(fmt.Sprintf("msg-%d", i))))
	}

	p.svc.Start(context.Background())

	// Wait until both workers hold a message, leaving five queued.
	require.Eventually(t, func() bool {
		return proc.callCount() == 2
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.svc.Shutdown(ctx))

	entries, err := p.svc.DeadLetters(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 7)
	for _, entry := range entries {
		assert.Equal(t, "shutdown_drain", entry.Reason)
	}

	snap := p.stats.Snapshot()
	assert.EqualValues(t, 7, snap.TotalDeadLettered)
	assert.False(t, snap.IsRunning)
}

func TestPipeline_ReplayGivesMessageAFreshRetryBudget(t *testing.T) {
	// First run buries the message, second run succeeds.
	buried := make(chan struct{})
	proc := newStubProcessor(func(_ context.Context, _ message.InboundMessage, _ int) error {
		select {
		case <-buried:
			return nil
		default:
			return &processorsvc.PermanentError{Reason: "unparseable"}
		}
	})

	p := newTestPipeline(t, proc, 10, 1)
	p.svc.Start(context.Background())

	require.True(t, p.queue.TryPush(newTestMessage("msg-replay")))

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalDeadLettered == 1
	}, time.Second, 10*time.Millisecond)

	close(buried)
	require.NoError(t, p.svc.Replay(context.Background(), "msg-replay"))

	require.Eventually(t, func() bool {
		return p.stats.Snapshot().TotalProcessed == 1
	}, time.Second, 10*time.Millisecond)

	// The replayed attempt starts from a clean counter.
	assert.Equal(t, 1, proc.lastCall().AttemptCount)
	assert.Empty(t, proc.lastCall().LastError)

	count, err := p.dlqRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	p.shutdown(t)
}

func TestPipeline_ReplayMissingEntry(t *testing.T) {
	p := newTestPipeline(t, newStubProcessor(nil), 10, 1)

	err := p.svc.Replay(context.Background(), "no-such-entry")
	require.Error(t, err)
}

func TestPipeline_ReplayAllReportsRequeuedCount(t *testing.T) {
	p := newTestPipeline(t, newStubProcessor(nil), 10, 1)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		msg := newTestMessage(fmt.Sprintf("dead-%d", i))
		msg.AttemptCount = 4
		require.NoError(t, p.dlqRepo.Insert(ctx, deadLetterEntry(msg)))
	}

	requeued, err := p.svc.ReplayAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, requeued)
	assert.Equal(t, 3, p.queue.Depth())

	count, err := p.dlqRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPipeline_ReplayAllRestoresEntriesThatDoNotFit(t *testing.T) {
	p := newTestPipeline(t, newStubProcessor(nil), 2, 1)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.dlqRepo.Insert(ctx, deadLetterEntry(newTestMessage(fmt.Sprintf("dead-%d", i)))))
	}

	requeued, err := p.svc.ReplayAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, requeued)

	count, err := p.dlqRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPipeline_ReplayIntoFullQueue(t *testing.T) {
	p := newTestPipeline(t, newStubProcessor(nil), 1, 1)

	ctx := context.Background()
	require.True(t, p.queue.TryPush(newTestMessage("blocker")))
	require.NoError(t, p.dlqRepo.Insert(ctx, deadLetterEntry(newTestMessage("dead-1"))))

	err := p.svc.Replay(ctx, "dead-1")
	require.ErrorIs(t, err, ErrQueueFull)

	count, err := p.dlqRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func deadLetterEntry(msg message.InboundMessage) deadletter.Entry {
	msg.Status = message.StatusDead

	return deadletter.Entry{
		ID:             msg.ID,
		Message:        msg,
		Reason:         "retries exhausted after 4 attempts: storage unavailable",
		DeadLetteredAt: time.Now().UTC(),
	}
}

func TestNextDelay(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 8 * time.Second},
		{attempt: 5, want: 16 * time.Second},
		{attempt: 6, want: 30 * time.Second},
		{attempt: 10, want: 30 * time.Second},
		{attempt: 0, want: time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextDelay(tt.attempt, base, max), "attempt %d", tt.attempt)
	}
}

func TestNextDelay_NeverDecreasesAndStaysCapped(t *testing.T) {
	base := 100 * time.Millisecond
	max := 5 * time.Second

	prev := time.Duration(0)
	for attempt := 1; attempt <= 100; attempt++ {
		delay := NextDelay(attempt, base, max)
		assert.GreaterOrEqual(t, delay, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, delay, max, "attempt %d", attempt)
		prev = delay
	}
}

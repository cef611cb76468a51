package pipelinesvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/ideadletterrepo"
	"github.com/roms-labs/ingest-svc/internal/queue"
	"github.com/roms-labs/ingest-svc/internal/service/models/deadletter"
	"github.com/roms-labs/ingest-svc/internal/service/models/message"
	"github.com/roms-labs/ingest-svc/internal/service/services/processorsvc"
	"github.com/roms-labs/ingest-svc/internal/stats"
)

// processor handles one message. Errors decide the message's fate: a
// PermanentError buries it, anything else schedules a retry.
type processor interface {
	Process(ctx context.Context, msg message.InboundMessage) error
}

// PipelineService owns the worker pool between the queue and the order
// store. Workers pop, invoke the processor under a per-message timeout
// and route failures to the delay heap or the dead letter store.
type PipelineService struct {
	queue     *queue.Queue
	processor processor
	dlqRepo   ideadletterrepo.IDeadLetterRepository
	stats     *stats.Collector

	workerCount    int
	processTimeout time.Duration
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration

	group  errgroup.Group
	cancel context.CancelFunc
	stopCh chan struct{}
}

// option is a function that configures the PipelineService.
type option func(*PipelineService)

// MustNewPipelineService creates a new PipelineService.
func MustNewPipelineService(opts ...option) *PipelineService {
	s := &PipelineService{
		workerCount:    10,
		processTimeout: time.Second * 30,
		maxRetries:     3,
		baseDelay:      time.Second,
		maxDelay:       time.Second * 30,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.queue == nil {
		panic("pipelinesvc: queue is required")
	}
	if s.processor == nil {
		panic("pipelinesvc: processor is required")
	}
	if s.dlqRepo == nil {
		panic("pipelinesvc: dead letter repository is required")
	}
	if s.stats == nil {
		s.stats = stats.New()
	}

	return s
}

// WithQueue sets the message queue for the PipelineService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithQueue(q *queue.Queue) option {
	return func(s *PipelineService) {
		s.queue = q
	}
}

// WithProcessor sets the message processor for the PipelineService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProcessor(p processor) option {
	return func(s *PipelineService) {
		s.processor = p
	}
}

// WithDeadLetterRepository sets the dead letter store for the PipelineService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDeadLetterRepository(repo ideadletterrepo.IDeadLetterRepository) option {
	return func(s *PipelineService) {
		s.dlqRepo = repo
	}
}

// WithStats sets the stats collector for the PipelineService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStats(c *stats.Collector) option {
	return func(s *PipelineService) {
		s.stats = c
	}
}

// WithWorkerCount sets the number of workers in the pool.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWorkerCount(n int) option {
	return func(s *PipelineService) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithProcessTimeout sets the per-message processing timeout.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProcessTimeout(d time.Duration) option {
	return func(s *PipelineService) {
		if d > 0 {
			s.processTimeout = d
		}
	}
}

// WithRetryPolicy sets how many retries a message gets and the backoff bounds.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) option {
	return func(s *PipelineService) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			s.baseDelay = baseDelay
		}
		if maxDelay > 0 {
			s.maxDelay = maxDelay
		}
	}
}

// Start launches the delay dispatcher and the worker pool. It returns
// immediately; workers run until Shutdown.
func (s *PipelineService) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.queue.Start(runCtx)

	s.stats.SetWorkersTotal(s.workerCount)
	s.stats.SetRunning(true)

	if count, err := s.dlqRepo.Count(runCtx); err == nil {
		s.stats.SetDeadLetterSize(count)
	}

	for i := 1; i <= s.workerCount; i++ {
		id := i
		s.group.Go(func() error {
			s.workerLoop(runCtx, id)

			return nil
		})
	}

	slog.Info("Pipeline started", "workers", s.workerCount, "max_retries", s.maxRetries)
}

// Shutdown stops the pool. Workers finish their current message within the
// context's deadline; everything still queued, delayed or unfinished is
// moved to the dead letter store so no accepted message is silently lost.
func (s *PipelineService) Shutdown(ctx context.Context) error {
	s.stats.SetRunning(false)
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}

	s.cancel()
	s.queue.Stop()

	drained := 0
	for {
		msg, ok := s.queue.TryPop()
		if !ok {
			break
		}
		s.deadLetter(context.Background(), msg, "shutdown_drain")
		drained++
	}
	for _, msg := range s.queue.DrainDelayed() {
		s.deadLetter(context.Background(), msg, "shutdown_drain")
		drained++
	}

	slog.Info("Pipeline stopped", "drained", drained)

	return nil
}

func (s *PipelineService) workerLoop(ctx context.Context, id int) {
	s.stats.WorkerStarted()
	defer s.stats.WorkerStopped()

	slog.Debug("Worker started", "worker", id)

	for {
		select {
		case <-s.stopCh:
			slog.Debug("Worker stopped", "worker", id)

			return
		default:
		}

		msg, ok := s.queue.Pop(ctx)
		if !ok {
			if ctx.Err() != nil {
				slog.Debug("Worker stopped", "worker", id)

				return
			}

			continue
		}

		s.handle(ctx, msg)
	}
}

// handle runs one processing attempt and routes the result.
func (s *PipelineService) handle(ctx context.Context, msg message.InboundMessage) {
	msg.AttemptCount++
	msg.Status = message.StatusProcessing

	start := time.Now()
	err := s.invoke(ctx, msg)
	s.stats.ObserveProcessingTime(time.Since(start))

	switch classify(err) {
	case outcomeSuccess:
		s.stats.RecordProcessed()
		slog.Debug("Message processed", "message_id", msg.ID, "attempt", msg.AttemptCount)

	case outcomeCancelled:
		s.deadLetter(context.Background(), msg, "shutdown_drain")

	case outcomePermanent:
		slog.Error("Message rejected permanently", "message_id", msg.ID, "error", err)

		s.deadLetter(ctx, msg, err.Error())

	case outcomeTransient, outcomeTimeout:
		s.stats.RecordTransientFailure()
		msg.LastError = err.Error()

		if msg.AttemptCount >= s.maxRetries+1 {
			slog.Error("Message retries exhausted", "message_id", msg.ID, "attempts", msg.AttemptCount, "error", err)

			s.deadLetter(ctx, msg, fmt.Sprintf("retries exhausted after %d attempts: %s", msg.AttemptCount, err.Error()))

			return
		}

		delay := NextDelay(msg.AttemptCount, s.baseDelay, s.maxDelay)
		msg.Status = message.StatusFailedTransient
		s.queue.PushDelayed(msg, time.Now().Add(delay))

		slog.Warn("Message scheduled for retry", "message_id", msg.ID, "attempt", msg.AttemptCount, "delay", delay, "error", err)
	}
}

// invoke runs the processor under the per-message timeout. A panic in the
// processor is converted to an error so a poisoned message cannot kill a
// worker.
func (s *PipelineService) invoke(ctx context.Context, msg message.InboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &processorsvc.TransientError{Reason: "processor panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	procCtx, cancel := context.WithTimeout(ctx, s.processTimeout)
	defer cancel()

	return s.processor.Process(procCtx, msg)
}

func (s *PipelineService) deadLetter(ctx context.Context, msg message.InboundMessage, reason string) {
	msg.Status = message.StatusDead

	entry := deadletter.Entry{
		ID:             msg.ID,
		Message:        msg,
		Reason:         reason,
		DeadLetteredAt: time.Now().UTC(),
	}

	if err := s.dlqRepo.Insert(ctx, entry); err != nil {
		slog.Error("Failed to insert dead letter entry", "message_id", msg.ID, "error", err)
	}

	s.stats.RecordDeadLettered()
	s.refreshDeadLetterSize(ctx)
}

func (s *PipelineService) refreshDeadLetterSize(ctx context.Context) {
	count, err := s.dlqRepo.Count(ctx)
	if err != nil {
		return
	}

	s.stats.SetDeadLetterSize(count)
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTransient
	outcomePermanent
	outcomeTimeout
	outcomeCancelled
)

// classify maps a processing error to its outcome. Unknown errors count as
// transient so an unexpected failure is retried rather than buried.
func classify(err error) outcome {
	if err == nil {
		return outcomeSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return outcomeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return outcomeCancelled
	}

	var perm *processorsvc.PermanentError
	if errors.As(err, &perm) {
		return outcomePermanent
	}

	return outcomeTransient
}

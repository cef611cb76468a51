package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roms-labs/ingest-svc/internal/service/models/message"
)

// depthReporter receives queue depth updates on every push and pop.
type depthReporter interface {
	SetQueueDepth(n int)
}

// Queue is a fixed-capacity FIFO safe for concurrent producers and
// consumers. Delayed messages wait in a min-heap keyed by their release
// time; a single dispatcher goroutine admits them into the FIFO when due,
// so retries never spawn per-message timers.
type Queue struct {
	items      chan message.InboundMessage
	capacity   int
	popTimeout time.Duration

	delayed *delayHeap
	wakeCh  chan struct{}
	stopCh  chan struct{}

	peak     atomic.Int64
	reporter depthReporter
}

// option is a function that configures the Queue.
type option func(*Queue)

// New creates a new Queue with the given capacity and pop timeout.
func New(capacity int, popTimeout time.Duration, opts ...option) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	if popTimeout <= 0 {
		popTimeout = time.Second
	}

	q := &Queue{
		items:      make(chan message.InboundMessage, capacity),
		capacity:   capacity,
		popTimeout: popTimeout,
		delayed:    newDelayHeap(),
		wakeCh:     make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}

	return q
}

// WithDepthReporter wires a stats sink for depth updates.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDepthReporter(r depthReporter) option {
	return func(q *Queue) {
		q.reporter = r
	}
}

// TryPush appends a message without blocking. It returns false when the
// queue is at capacity.
func (q *Queue) TryPush(msg message.InboundMessage) bool {
	select {
	case q.items <- msg:
		q.observeDepth()

		return true
	default:
		return false
	}
}

// PushDelayed schedules a message to become visible to consumers at or
// after availableAt. The message is held in the delay heap until then.
func (q *Queue) PushDelayed(msg message.InboundMessage, availableAt time.Time) {
	q.delayed.push(msg, availableAt)

	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
}

// Pop removes the oldest visible message. It blocks up to the configured
// pop timeout and returns false when nothing arrived in time or the
// context was cancelled.
func (q *Queue) Pop(ctx context.Context) (message.InboundMessage, bool) {
	timer := time.NewTimer(q.popTimeout)
	defer timer.Stop()

	select {
	case msg := <-q.items:
		q.observeDepth()

		return msg, true
	case <-ctx.Done():
		return message.InboundMessage{}, false
	case <-timer.C:
		return message.InboundMessage{}, false
	}
}

// TryPop removes the oldest visible message without blocking. Used by the
// shutdown drain.
func (q *Queue) TryPop() (message.InboundMessage, bool) {
	select {
	case msg := <-q.items:
		q.observeDepth()

		return msg, true
	default:
		return message.InboundMessage{}, false
	}
}

// Start runs the delay dispatcher until the context is cancelled or Stop
// is called. Run it in its own goroutine.
func (q *Queue) Start(ctx context.Context) {
	slog.Info("Queue dispatcher started", "capacity", q.capacity)

	for {
		next, ok := q.delayed.nextFireTime()
		wait := time.Hour
		if ok {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Queue dispatcher shutting down")

			return
		case <-q.stopCh:
			timer.Stop()
			slog.Info("Queue dispatcher stopped")

			return
		case <-q.wakeCh:
			timer.Stop()
		case <-timer.C:
			q.admitDue(ctx)
		}
	}
}

// Stop stops the delay dispatcher.
func (q *Queue) Stop() {
	close(q.stopCh)
}

// admitDue moves every due message from the delay heap into the FIFO.
// When the FIFO is full the dispatcher retries until space frees; delayed
// messages are never dropped.
func (q *Queue) admitDue(ctx context.Context) {
	for {
		msg, ok := q.delayed.popDue(time.Now())
		if !ok {
			return
		}

		for !q.TryPush(msg) {
			select {
			case <-ctx.Done():
				q.delayed.push(msg, time.Now())

				return
			case <-q.stopCh:
				q.delayed.push(msg, time.Now())

				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}

// DrainDelayed removes and returns every message still waiting in the
// delay heap, regardless of its release time.
func (q *Queue) DrainDelayed() []message.InboundMessage {
	return q.delayed.drain()
}

// Depth returns the number of messages currently visible to consumers.
func (q *Queue) Depth() int {
	return len(q.items)
}

// DelayedCount returns the number of messages waiting in the delay heap.
func (q *Queue) DelayedCount() int {
	return q.delayed.len()
}

// Peak returns the highest observed depth.
func (q *Queue) Peak() int {
	return int(q.peak.Load())
}

// Capacity returns the configured capacity.
func (q *Queue) Capacity() int {
	return q.capacity
}

func (q *Queue) observeDepth() {
	depth := int64(len(q.items))
	for {
		peak := q.peak.Load()
		if depth <= peak || q.peak.CompareAndSwap(peak, depth) {
			break
		}
	}
	if q.reporter != nil {
		q.reporter.SetQueueDepth(int(depth))
	}
}

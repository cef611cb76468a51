package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates pipeline counters. Counters are atomic so that
// producers and workers never contend on a lock; only the processing-time
// window takes a mutex, and only for its own ring.
type Collector struct {
	totalReceived        atomic.Int64
	totalProcessed       atomic.Int64
	totalFailedTransient atomic.Int64
	totalDeadLettered    atomic.Int64

	queueDepth     atomic.Int64
	queuePeak      atomic.Int64
	deadLetterSize atomic.Int64
	workersTotal   atomic.Int64
	workersRunning atomic.Int64
	running        atomic.Bool

	window  *timingWindow
	metrics *Metrics
}

// Snapshot is a point-in-time view of the pipeline counters.
type Snapshot struct {
	QueueSize            int64   `json:"queue_size"`
	QueueSizePeak        int64   `json:"queue_size_peak"`
	TotalReceived        int64   `json:"total_received"`
	TotalProcessed       int64   `json:"total_processed"`
	TotalFailedTransient int64   `json:"total_failed_transient"`
	TotalDeadLettered    int64   `json:"total_dead_lettered"`
	DeadLetterQueueSize  int64   `json:"dead_letter_queue_size"`
	WorkersRunning       int64   `json:"workers_running"`
	WorkersTotal         int64   `json:"workers_total"`
	AvgProcessingTimeMS  float64 `json:"avg_processing_time_ms"`
	SuccessRate          float64 `json:"success_rate"`
	IsRunning            bool    `json:"is_running"`
}

// option is a function that configures the Collector.
type option func(*Collector)

// New creates a new Collector.
func New(opts ...option) *Collector {
	c := &Collector{
		window: newTimingWindow(defaultWindowSize),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithWindowSize sets the size of the rolling processing-time window.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWindowSize(n int) option {
	return func(c *Collector) {
		c.window = newTimingWindow(n)
	}
}

// WithMetrics mirrors every update into the given Prometheus collectors.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *Metrics) option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// RecordReceived counts a message accepted into the queue.
func (c *Collector) RecordReceived() {
	c.totalReceived.Add(1)
	if c.metrics != nil {
		c.metrics.receivedTotal.Inc()
	}
}

// RecordProcessed counts a message that reached the succeeded state.
func (c *Collector) RecordProcessed() {
	c.totalProcessed.Add(1)
	if c.metrics != nil {
		c.metrics.processedTotal.Inc()
	}
}

// RecordTransientFailure counts one failed attempt that will be retried.
func (c *Collector) RecordTransientFailure() {
	c.totalFailedTransient.Add(1)
	if c.metrics != nil {
		c.metrics.transientFailuresTotal.Inc()
	}
}

// RecordDeadLettered counts a message that reached the dead state.
func (c *Collector) RecordDeadLettered() {
	c.totalDeadLettered.Add(1)
	if c.metrics != nil {
		c.metrics.deadLetteredTotal.Inc()
	}
}

// ObserveProcessingTime records the duration of one processing attempt.
func (c *Collector) ObserveProcessingTime(d time.Duration) {
	c.window.observe(float64(d) / float64(time.Millisecond))
	if c.metrics != nil {
		c.metrics.processingSeconds.Observe(d.Seconds())
	}
}

// SetQueueDepth updates the queue depth gauge and its peak.
func (c *Collector) SetQueueDepth(n int) {
	depth := int64(n)
	c.queueDepth.Store(depth)
	for {
		peak := c.queuePeak.Load()
		if depth <= peak || c.queuePeak.CompareAndSwap(peak, depth) {
			break
		}
	}
	if c.metrics != nil {
		c.metrics.queueDepth.Set(float64(depth))
		c.metrics.queueDepthPeak.Set(float64(c.queuePeak.Load()))
	}
}

// SetDeadLetterSize updates the dead letter store size gauge.
func (c *Collector) SetDeadLetterSize(n int) {
	c.deadLetterSize.Store(int64(n))
	if c.metrics != nil {
		c.metrics.deadLetterSize.Set(float64(n))
	}
}

// SetWorkersTotal records the configured pool size.
func (c *Collector) SetWorkersTotal(n int) {
	c.workersTotal.Store(int64(n))
}

// WorkerStarted increments the running worker gauge.
func (c *Collector) WorkerStarted() {
	running := c.workersRunning.Add(1)
	if c.metrics != nil {
		c.metrics.workersRunning.Set(float64(running))
	}
}

// WorkerStopped decrements the running worker gauge.
func (c *Collector) WorkerStopped() {
	running := c.workersRunning.Add(-1)
	if c.metrics != nil {
		c.metrics.workersRunning.Set(float64(running))
	}
}

// SetRunning flips the pipeline running flag.
func (c *Collector) SetRunning(running bool) {
	c.running.Store(running)
}

// Snapshot returns a consistent-enough view for monitoring. Individual
// counters are read atomically; the set as a whole is not fenced.
func (c *Collector) Snapshot() Snapshot {
	processed := c.totalProcessed.Load()
	dead := c.totalDeadLettered.Load()

	successRate := 1.0
	if processed+dead > 0 {
		successRate = float64(processed) / float64(processed+dead)
	}

	return Snapshot{
		QueueSize:            c.queueDepth.Load(),
		QueueSizePeak:        c.queuePeak.Load(),
		TotalReceived:        c.totalReceived.Load(),
		TotalProcessed:       processed,
		TotalFailedTransient: c.totalFailedTransient.Load(),
		TotalDeadLettered:    dead,
		DeadLetterQueueSize:  c.deadLetterSize.Load(),
		WorkersRunning:       c.workersRunning.Load(),
		WorkersTotal:         c.workersTotal.Load(),
		AvgProcessingTimeMS:  c.window.avg(),
		SuccessRate:          successRate,
		IsRunning:            c.running.Load(),
	}
}

const defaultWindowSize = 100

// timingWindow keeps the last n processing times in a ring buffer.
type timingWindow struct {
	mu     sync.Mutex
	values []float64
	next   int
	filled int
}

func newTimingWindow(n int) *timingWindow {
	if n <= 0 {
		n = defaultWindowSize
	}

	return &timingWindow{
		values: make([]float64, n),
	}
}

func (w *timingWindow) observe(ms float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.values[w.next] = ms
	w.next = (w.next + 1) % len(w.values)
	if w.filled < len(w.values) {
		w.filled++
	}
}

func (w *timingWindow) avg() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i < w.filled; i++ {
		sum += w.values[i]
	}

	return sum / float64(w.filled)
}

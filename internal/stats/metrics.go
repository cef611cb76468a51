package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors mirroring the pipeline counters.
type Metrics struct {
	receivedTotal          prometheus.Counter
	processedTotal         prometheus.Counter
	transientFailuresTotal prometheus.Counter
	deadLetteredTotal      prometheus.Counter
	queueDepth             prometheus.Gauge
	queueDepthPeak         prometheus.Gauge
	deadLetterSize         prometheus.Gauge
	workersRunning         prometheus.Gauge
	processingSeconds      prometheus.Histogram

	registerer prometheus.Registerer
	registered bool
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ingest",
		Subsystem: "pipeline",
		Name:      name,
		Help:      help,
	})
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ingest",
		Subsystem: "pipeline",
		Name:      name,
		Help:      help,
	})
}

// NewMetrics creates the pipeline Prometheus collectors.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer:             registerer,
		receivedTotal:          newCounter("received_total", "Messages accepted into the queue"),
		processedTotal:         newCounter("processed_total", "Messages processed successfully"),
		transientFailuresTotal: newCounter("transient_failures_total", "Failed attempts that were retried"),
		deadLetteredTotal:      newCounter("dead_lettered_total", "Messages moved to the dead letter store"),
		queueDepth:             newGauge("queue_depth", "Current number of queued messages"),
		queueDepthPeak:         newGauge("queue_depth_peak", "Highest observed queue depth"),
		deadLetterSize:         newGauge("dead_letter_queue_size", "Current number of dead letter entries"),
		workersRunning:         newGauge("workers_running", "Workers currently running"),
		processingSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ingest",
			Subsystem: "pipeline",
			Name:      "processing_duration_seconds",
			Help:      "Duration of a single processing attempt",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.receivedTotal,
		m.processedTotal,
		m.transientFailuresTotal,
		m.deadLetteredTotal,
		m.queueDepth,
		m.queueDepthPeak,
		m.deadLetterSize,
		m.workersRunning,
		m.processingSeconds,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true

	return nil
}

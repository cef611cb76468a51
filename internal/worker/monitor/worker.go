package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/roms-labs/ingest-svc/internal/dal/interfaces/ideadletterrepo"
	"github.com/roms-labs/ingest-svc/internal/stats"
)

// Worker periodically logs a pipeline heartbeat and refreshes gauges that
// can drift when dead letters are changed outside the pipeline.
type Worker struct {
	stats    *stats.Collector
	dlqRepo  ideadletterrepo.IDeadLetterRepository
	interval time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a new monitor worker.
func NewWorker(collector *stats.Collector, dlqRepo ideadletterrepo.IDeadLetterRepository) *Worker {
	intervalSeconds := viper.GetInt("monitor.interval_seconds")
	if intervalSeconds == 0 {
		intervalSeconds = 30
	}

	return &Worker{
		stats:    collector,
		dlqRepo:  dlqRepo,
		interval: time.Duration(intervalSeconds) * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins emitting heartbeats until the context is cancelled or Stop
// is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Monitor worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Monitor worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Monitor worker stopped")

			return
		case <-ticker.C:
			w.report(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// report refreshes the dead-letter gauge and logs a heartbeat snapshot.
func (w *Worker) report(ctx context.Context) {
	if count, err := w.dlqRepo.Count(ctx); err != nil {
		slog.Error("Failed to count dead letters", "error", err)
	} else {
		w.stats.SetDeadLetterSize(count)
	}

	snap := w.stats.Snapshot()
	slog.Info("Pipeline heartbeat",
		"queue_size", snap.QueueSize,
		"received", snap.TotalReceived,
		"processed", snap.TotalProcessed,
		"transient_failures", snap.TotalFailedTransient,
		"dead_lettered", snap.TotalDeadLettered,
		"workers_running", snap.WorkersRunning,
		"avg_processing_ms", snap.AvgProcessingTimeMS,
		"success_rate", snap.SuccessRate,
	)
}

package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Snapshot_Counters(t *testing.T) {
	c := New()

	c.RecordReceived()
	c.RecordReceived()
	c.RecordReceived()
	c.RecordProcessed()
	c.RecordTransientFailure()
	c.RecordTransientFailure()
	c.RecordDeadLettered()

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.TotalReceived)
	assert.Equal(t, int64(1), snap.TotalProcessed)
	assert.Equal(t, int64(2), snap.TotalFailedTransient)
	assert.Equal(t, int64(1), snap.TotalDeadLettered)
}

func TestCollector_SuccessRate(t *testing.T) {
	c := New()

	// No terminal messages yet counts as fully healthy.
	assert.Equal(t, 1.0, c.Snapshot().SuccessRate)

	c.RecordProcessed()
	c.RecordProcessed()
	c.RecordProcessed()
	c.RecordDeadLettered()

	assert.InDelta(t, 0.75, c.Snapshot().SuccessRate, 1e-9)
}

func TestCollector_QueueDepthPeak(t *testing.T) {
	c := New()

	c.SetQueueDepth(3)
	c.SetQueueDepth(7)
	c.SetQueueDepth(2)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.QueueSize)
	assert.Equal(t, int64(7), snap.QueueSizePeak)
}

func TestCollector_ProcessingTimeWindow(t *testing.T) {
	c := New(WithWindowSize(2))

	c.ObserveProcessingTime(10 * time.Millisecond)
	c.ObserveProcessingTime(20 * time.Millisecond)
	c.ObserveProcessingTime(30 * time.Millisecond)

	// Window of 2 keeps only the last two observations.
	assert.InDelta(t, 25.0, c.Snapshot().AvgProcessingTimeMS, 1e-9)
}

func TestCollector_WorkerGauges(t *testing.T) {
	c := New()

	c.SetWorkersTotal(4)
	c.WorkerStarted()
	c.WorkerStarted()
	c.WorkerStopped()

	snap := c.Snapshot()
	assert.Equal(t, int64(4), snap.WorkersTotal)
	assert.Equal(t, int64(1), snap.WorkersRunning)
}

func TestCollector_ConcurrentRecords(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordReceived()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5000), c.Snapshot().TotalReceived)
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Register())
	// Registering twice must not fail.
	require.NoError(t, m.Register())

	c := New(WithMetrics(m))
	c.RecordReceived()
	c.SetQueueDepth(5)
	c.ObserveProcessingTime(15 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

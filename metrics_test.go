package xsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshotReflectsCounters(t *testing.T) {
	m := NewMetrics()
	m.MessagesIn.Add(3)
	m.MessagesOut.Add(2)
	m.Rejects.Add(1)
	m.BytesIn.Add(128)
	m.RecordLatency(10 * time.Millisecond)
	m.RecordLatency(30 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(3), snap.MessagesIn)
	assert.Equal(t, uint64(2), snap.MessagesOut)
	assert.Equal(t, uint64(1), snap.Rejects)
	assert.Equal(t, uint64(128), snap.BytesIn)
	assert.Equal(t, float64(20*time.Millisecond), snap.AvgLatencyNs)
}

func TestMetricsResetZeroesCountersNotStartTime(t *testing.T) {
	m := NewMetrics()
	start := m.StartTime
	m.MessagesIn.Add(5)
	m.Reset()

	assert.Equal(t, uint64(0), m.MessagesIn.Load())
	assert.Equal(t, start, m.StartTime)
}

package xsession

import (
	"sync/atomic"
	"time"
)

// Metrics accumulates counters for a single session. All fields are
// updated with atomic operations so they can be read concurrently with
// the event loop and writer thread that mutate them.
type Metrics struct {
	MessagesIn     atomic.Uint64
	MessagesOut    atomic.Uint64
	Rejects        atomic.Uint64
	Reconnects     atomic.Uint64
	GapsDetected   atomic.Uint64
	BytesIn        atomic.Uint64
	BytesOut       atomic.Uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	StartTime time.Time
}

// NewMetrics returns a zeroed Metrics with StartTime set to now.
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordLatency folds a single round-trip latency sample into the running
// average, mirroring the cumulative-histogram update style used for I/O
// latency elsewhere in this codebase's ancestry.
func (m *Metrics) RecordLatency(d time.Duration) {
	m.totalLatencyNs.Add(uint64(d.Nanoseconds()))
	m.latencyCount.Add(1)
}

// MetricsSnapshot is a point-in-time, allocation-free-to-compute summary
// suitable for logging or exposing to an external scraper.
type MetricsSnapshot struct {
	MessagesIn    uint64
	MessagesOut   uint64
	Rejects       uint64
	Reconnects    uint64
	GapsDetected  uint64
	BytesIn       uint64
	BytesOut      uint64
	AvgLatencyNs  float64
	UptimeNs      int64
}

// Snapshot computes a MetricsSnapshot from the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := m.latencyCount.Load()
	var avg float64
	if count > 0 {
		avg = float64(m.totalLatencyNs.Load()) / float64(count)
	}
	return MetricsSnapshot{
		MessagesIn:   m.MessagesIn.Load(),
		MessagesOut:  m.MessagesOut.Load(),
		Rejects:      m.Rejects.Load(),
		Reconnects:   m.Reconnects.Load(),
		GapsDetected: m.GapsDetected.Load(),
		BytesIn:      m.BytesIn.Load(),
		BytesOut:     m.BytesOut.Load(),
		AvgLatencyNs: avg,
		UptimeNs:     time.Since(m.StartTime).Nanoseconds(),
	}
}

// Reset zeroes every counter without resetting StartTime.
func (m *Metrics) Reset() {
	m.MessagesIn.Store(0)
	m.MessagesOut.Store(0)
	m.Rejects.Store(0)
	m.Reconnects.Store(0)
	m.GapsDetected.Store(0)
	m.BytesIn.Store(0)
	m.BytesOut.Store(0)
	m.totalLatencyNs.Store(0)
	m.latencyCount.Store(0)
}

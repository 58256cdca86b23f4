package metrics

import (
	"log/slog"
	"sync"
	"time"
)

const (
	latencyWindow   = 200
	latencyLogEvery = 10
)

// LatencyStats is what the monitor reported after a sample.
type LatencyStats struct {
	AvgMs   int64
	P95Ms   int64
	Samples int
	Alert   bool
}

// LatencyMonitor keeps a short in-process latency window and raises a log
// alert when p95 crosses a threshold.
type LatencyMonitor struct {
	threshold time.Duration

	mu       sync.Mutex
	samples  []int64
	observed int64
}

func NewLatencyMonitor(threshold time.Duration) *LatencyMonitor {
	return &LatencyMonitor{threshold: threshold}
}

// Observe adds a sample in milliseconds. Every 10th accepted sample it
// computes avg and p95, logs them, and returns the figures; otherwise it
// returns nil. Non-positive samples are ignored.
func (m *LatencyMonitor) Observe(ms int64) *LatencyStats {
	if ms <= 0 {
		return nil
	}

	m.mu.Lock()
	m.samples = append(m.samples, ms)
	if len(m.samples) > latencyWindow {
		m.samples = m.samples[len(m.samples)-latencyWindow:]
	}
	m.observed++
	if len(m.samples) < latencyLogEvery || m.observed%latencyLogEvery != 0 {
		m.mu.Unlock()
		return nil
	}
	window := append([]int64(nil), m.samples...)
	m.mu.Unlock()

	stats := &LatencyStats{
		AvgMs:   Average(window),
		P95Ms:   Percentile(window, 0.95),
		Samples: len(window),
	}
	slog.Info("rewrite latency", "avg_ms", stats.AvgMs, "p95_ms", stats.P95Ms, "samples", stats.Samples)

	if thresholdMs := m.threshold.Milliseconds(); thresholdMs > 0 && stats.P95Ms > thresholdMs {
		stats.Alert = true
		slog.Warn("rewrite latency alert",
			"p95_ms", stats.P95Ms,
			"threshold_ms", thresholdMs,
			"samples", stats.Samples,
		)
	}
	return stats
}

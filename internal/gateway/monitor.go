package gateway

import (
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"

	"github.com/tillsync/tillsync/internal/queryspec"
)

// Monitor keeps gateway execution stats: a moving average of query
// latency and per-action counters. Surfaced on the runtime endpoint.
type Monitor struct {
	mu       sync.Mutex
	queryDur *movingaverage.MovingAverage
	counts   map[string]int
	failures int
}

// Stats is a point-in-time snapshot of the monitor.
type Stats struct {
	AvgQueryMillis float64        `json:"avg_query_ms"`
	Actions        map[string]int `json:"actions"`
	Failures       int            `json:"failures"`
}

// NewMonitor creates a Monitor with a 100-sample latency window.
func NewMonitor() *Monitor {
	return &Monitor{
		queryDur: movingaverage.New(100),
		counts:   make(map[string]int),
	}
}

// Observe records one gateway execution.
func (m *Monitor) Observe(action queryspec.Action, dur time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryDur.Add(float64(dur/time.Microsecond) / 1000.0)
	m.counts[string(action)]++
	if !ok {
		m.failures++
	}
}

// Snapshot returns current stats.
func (m *Monitor) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}
	return Stats{
		AvgQueryMillis: m.queryDur.Avg(),
		Actions:        counts,
		Failures:       m.failures,
	}
}

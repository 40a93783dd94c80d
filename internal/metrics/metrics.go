package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex        sync.RWMutex
	calls        map[string]int64
	failures     map[string]int64
	rejections   map[string]int64
	durations    map[string][]time.Duration
	healthStatus map[string]bool
	startTime    time.Time
}

type Snapshot struct {
	TotalCalls   int64                        `json:"total_calls"`
	Uptime       time.Duration                `json:"uptime"`
	Dependencies map[string]DependencyMetrics `json:"dependencies"`
}

type DependencyMetrics struct {
	Calls       int64         `json:"calls"`
	Failures    int64         `json:"failures"`
	Rejections  int64         `json:"rejections"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		calls:        make(map[string]int64),
		failures:     make(map[string]int64),
		rejections:   make(map[string]int64),
		durations:    make(map[string][]time.Duration),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

func (m *Metrics) RecordCall(dependency string, duration time.Duration, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.calls[dependency]++
	if !success {
		m.failures[dependency]++
	}

	m.durations[dependency] = append(m.durations[dependency], duration)
	if len(m.durations[dependency]) > 1000 {
		m.durations[dependency] = m.durations[dependency][1:]
	}
}

func (m *Metrics) RecordRejection(dependency string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[dependency]++
}

func (m *Metrics) UpdateHealthStatus(dependency string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[dependency] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:       time.Since(m.startTime),
		Dependencies: make(map[string]DependencyMetrics),
	}

	// Collect every dependency seen by any counter
	allDeps := make(map[string]bool)
	for dep := range m.calls {
		allDeps[dep] = true
	}
	for dep := range m.rejections {
		allDeps[dep] = true
	}
	for dep := range m.healthStatus {
		allDeps[dep] = true
	}

	for dep := range allDeps {
		snap.TotalCalls += m.calls[dep]

		dm := DependencyMetrics{
			Calls:      m.calls[dep],
			Failures:   m.failures[dep],
			Rejections: m.rejections[dep],
			Healthy:    m.healthStatus[dep],
		}

		durations := m.durations[dep]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			dm.AvgResponse = average(sorted)
			dm.P50Response = percentile(sorted, 0.50)
			dm.P95Response = percentile(sorted, 0.95)
			dm.P99Response = percentile(sorted, 0.99)
		}

		snap.Dependencies[dep] = dm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

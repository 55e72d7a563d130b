package ports

import (
	"sync"
	"time"
)

// MockStatsCollector provides a working in-memory StatsCollector for tests
// that need to assert on what was recorded
type MockStatsCollector struct {
	byReason    map[string]int64
	rebuilt     []string
	total       int64
	latency     time.Duration
	validations int64
	repairs     int64
	queued      int64
	visible     int
	hidden      int
	mu          sync.RWMutex
}

func NewMockStatsCollector() *MockStatsCollector {
	return &MockStatsCollector{
		byReason: make(map[string]int64),
	}
}

func (m *MockStatsCollector) RecordRebuild(tabID, reason string, latency time.Duration, matching, visible int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latency += latency
	m.byReason[reason]++
	m.rebuilt = append(m.rebuilt, tabID)
}

func (m *MockStatsCollector) RecordValidation(outcome string, tabs int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch outcome {
	case ValidationConfirmed, ValidationDismissed:
		m.repairs++
	default:
		m.validations++
	}
}

func (m *MockStatsCollector) RecordQueued(tabs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued += int64(tabs)
}

func (m *MockStatsCollector) RecordTabCount(visible, hidden int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible, m.hidden = visible, hidden
}

func (m *MockStatsCollector) GetRebuildStats() RebuildStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byReason := make(map[string]int64, len(m.byReason))
	for k, v := range m.byReason {
		byReason[k] = v
	}
	return RebuildStats{
		ByReason:      byReason,
		TotalRebuilds: m.total,
		TotalLatency:  m.latency,
		Validations:   m.validations,
		Repairs:       m.repairs,
		Queued:        m.queued,
	}
}

// Rebuilt returns the tab ids in rebuild order
func (m *MockStatsCollector) Rebuilt() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.rebuilt...)
}

// Reset forgets everything recorded so far
func (m *MockStatsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byReason = make(map[string]int64)
	m.rebuilt = nil
	m.total, m.latency, m.validations, m.repairs, m.queued = 0, 0, 0, 0, 0
}

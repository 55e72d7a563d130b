package stats

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector(logger.NewDiscard(), reg), reg
}

func TestCollector_RecordRebuild(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordRebuild("t1", ports.RebuildCreate, 2*time.Millisecond, 10, 8)
	c.RecordRebuild("t1", ports.RebuildResource, 4*time.Millisecond, 12, 9)
	c.RecordRebuild("t2", ports.RebuildResource, time.Millisecond, 3, 3)

	s := c.GetRebuildStats()
	assert.Equal(t, int64(3), s.TotalRebuilds)
	assert.Equal(t, 7*time.Millisecond, s.TotalLatency)
	assert.Equal(t, map[string]int64{ports.RebuildCreate: 1, ports.RebuildResource: 2}, s.ByReason)
	assert.Equal(t, 2*time.Millisecond, s.LatencyP50)
	assert.Equal(t, 4*time.Millisecond, s.LatencyP99)

	assert.InDelta(t, 2, testutil.ToFloat64(c.rebuildsTotal.WithLabelValues(ports.RebuildResource)), 0)
	assert.InDelta(t, 15, testutil.ToFloat64(c.catalogSize.WithLabelValues("matching")), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(c.catalogSize.WithLabelValues("visible")), 0)

	tabs := c.GetTabStats()
	require.Contains(t, tabs, "t1")
	assert.Equal(t, int64(2), tabs["t1"].Rebuilds)
	assert.Equal(t, ports.RebuildResource, tabs["t1"].LastReason)
	assert.Equal(t, 12, tabs["t1"].LastMatching)

	c.ForgetTab("t1")
	c.ForgetTab("t1")
	assert.NotContains(t, c.GetTabStats(), "t1")
	assert.InDelta(t, 3, testutil.ToFloat64(c.catalogSize.WithLabelValues("matching")), 0)
}

func TestCollector_Validation(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordValidation(ports.ValidationValid, 3)
	c.RecordValidation(ports.ValidationInvalid, 1)
	c.RecordValidation(ports.ValidationConfirmed, 1)
	c.RecordValidation(ports.ValidationDismissed, 2)
	c.RecordQueued(4)

	s := c.GetRebuildStats()
	assert.Equal(t, int64(2), s.Validations)
	assert.Equal(t, int64(2), s.Repairs)
	assert.Equal(t, int64(4), s.Queued)
	assert.InDelta(t, 1, testutil.ToFloat64(c.validations.WithLabelValues(ports.ValidationDismissed)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(c.queuedTotal), 0)
}

func TestCollector_Exposition(t *testing.T) {
	c, reg := newTestCollector(t)
	c.RecordTabCount(5, 2)

	expected := `
# HELP tabkeeper_tabs_count Tabs by visibility
# TYPE tabkeeper_tabs_count gauge
tabkeeper_tabs_count{state="hidden"} 2
tabkeeper_tabs_count{state="visible"} 5
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tabkeeper_tabs_count"))
}

func TestCollector_DuplicateRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(logger.NewDiscard(), reg)
	assert.NotPanics(t, func() { NewCollector(logger.NewDiscard(), reg) })
	assert.NotPanics(t, func() { NewCollector(logger.NewDiscard(), nil) })
}

func TestCollector_TrackedTabsAreBounded(t *testing.T) {
	c, _ := newTestCollector(t)
	for i := 0; i < MaxTrackedTabs+10; i++ {
		c.RecordRebuild(strings.Repeat("x", i+1), ports.RebuildLoad, time.Microsecond, 1, 1)
	}
	assert.Len(t, c.GetTabStats(), MaxTrackedTabs)
	assert.Equal(t, int64(MaxTrackedTabs+10), c.GetRebuildStats().TotalRebuilds)
}

func TestCollector_Concurrent(t *testing.T) {
	c, _ := newTestCollector(t)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.RecordRebuild("shared", ports.RebuildResource, time.Microsecond, i, i)
				c.RecordQueued(1)
			}
		}()
	}
	wg.Wait()

	s := c.GetRebuildStats()
	assert.Equal(t, int64(800), s.TotalRebuilds)
	assert.Equal(t, int64(800), s.Queued)
	assert.Equal(t, int64(800), c.GetTabStats()["shared"].Rebuilds)
}

package stats

/*
				Tabkeeper Stats Collector
	Collector centralises what we track about catalog rebuilds and the
	validation flow. The store, reactor and coordinator all report here.

	Every figure is kept twice: as prometheus series on the registry handed in
	(so a scrape endpoint can expose them) and as plain counters that back
	GetRebuildStats for the CLI and the logs.

	NOTE:	Per-tab data is bounded by MaxTrackedTabs. Tabs beyond that still
			count towards the totals, they just don't get their own entry.
*/

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

const (
	Namespace = "tabkeeper"

	MaxTrackedTabs   = 256
	LatencySampleCap = 200
)

// TabStats is the last rebuild of one tab
type TabStats struct {
	LastRebuild  time.Time
	LastReason   string
	Rebuilds     int64
	LastMatching int
	LastVisible  int
}

type Collector struct {
	logger logger.StyledLogger

	rebuildsTotal  *prometheus.CounterVec
	rebuildLatency prometheus.Histogram
	catalogSize    *prometheus.GaugeVec
	validations    *prometheus.CounterVec
	queuedTotal    prometheus.Counter
	tabCount       *prometheus.GaugeVec

	tabs    sync.Map // map[string]*TabStats
	tracked atomic.Int64
	tabsMu  sync.Mutex

	latencies *ReservoirSampler

	byReason     sync.Map // map[string]*atomic.Int64
	total        atomic.Int64
	totalLatency atomic.Int64
	validated    atomic.Int64
	repairs      atomic.Int64
	queued       atomic.Int64
}

// NewCollector registers its series on reg; a nil reg uses a private registry
func NewCollector(log logger.StyledLogger, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		logger:    log,
		latencies: NewReservoirSampler(LatencySampleCap),
		rebuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "catalog",
			Name:      "rebuilds_total",
			Help:      "Catalog rebuilds by reason",
		}, []string{"reason"}),
		rebuildLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "catalog",
			Name:      "rebuild_duration_seconds",
			Help:      "Time taken to rebuild one catalog",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		catalogSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "catalog",
			Name:      "entries",
			Help:      "Entries in the most recent catalog build, summed over tabs",
		}, []string{"set"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "validation",
			Name:      "outcomes_total",
			Help:      "Validation batches and repairs by outcome",
		}, []string{"outcome"}),
		queuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "validation",
			Name:      "queued_tabs_total",
			Help:      "Tabs queued while a validation was in progress",
		}),
		tabCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "tabs",
			Name:      "count",
			Help:      "Tabs by visibility",
		}, []string{"state"}),
	}

	for _, col := range []prometheus.Collector{
		c.rebuildsTotal, c.rebuildLatency, c.catalogSize, c.validations, c.queuedTotal, c.tabCount,
	} {
		if err := reg.Register(col); err != nil {
			log.Warn("Failed to register metric", "error", err)
		}
	}
	return c
}

var _ ports.StatsCollector = (*Collector)(nil)

func (c *Collector) RecordRebuild(tabID, reason string, latency time.Duration, matching, visible int) {
	c.total.Add(1)
	c.totalLatency.Add(int64(latency))
	c.reasonCounter(reason).Add(1)
	c.latencies.Add(int64(latency))

	c.rebuildsTotal.WithLabelValues(reason).Inc()
	c.rebuildLatency.Observe(latency.Seconds())

	data := c.tabData(tabID)
	if data == nil {
		return
	}
	c.tabsMu.Lock()
	prevMatching, prevVisible := data.LastMatching, data.LastVisible
	data.Rebuilds++
	data.LastRebuild = time.Now()
	data.LastReason = reason
	data.LastMatching = matching
	data.LastVisible = visible
	c.tabsMu.Unlock()

	c.catalogSize.WithLabelValues("matching").Add(float64(matching - prevMatching))
	c.catalogSize.WithLabelValues("visible").Add(float64(visible - prevVisible))
}

func (c *Collector) RecordValidation(outcome string, tabs int) {
	switch outcome {
	case ports.ValidationConfirmed, ports.ValidationDismissed:
		c.repairs.Add(1)
	default:
		c.validated.Add(1)
	}
	c.validations.WithLabelValues(outcome).Inc()
	c.logger.Debug("Validation recorded", "outcome", outcome, "tabs", tabs)
}

func (c *Collector) RecordQueued(tabs int) {
	c.queued.Add(int64(tabs))
	c.queuedTotal.Add(float64(tabs))
}

func (c *Collector) RecordTabCount(visible, hidden int) {
	c.tabCount.WithLabelValues("visible").Set(float64(visible))
	c.tabCount.WithLabelValues("hidden").Set(float64(hidden))
}

func (c *Collector) GetRebuildStats() ports.RebuildStats {
	byReason := make(map[string]int64)
	c.byReason.Range(func(k, v any) bool {
		byReason[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})

	p50, p95, p99 := c.latencies.GetPercentiles()
	return ports.RebuildStats{
		ByReason:      byReason,
		TotalRebuilds: c.total.Load(),
		TotalLatency:  time.Duration(c.totalLatency.Load()),
		LatencyP50:    time.Duration(p50),
		LatencyP95:    time.Duration(p95),
		LatencyP99:    time.Duration(p99),
		Validations:   c.validated.Load(),
		Repairs:       c.repairs.Load(),
		Queued:        c.queued.Load(),
	}
}

// GetTabStats returns a copy of the per-tab data
func (c *Collector) GetTabStats() map[string]TabStats {
	c.tabsMu.Lock()
	defer c.tabsMu.Unlock()

	out := make(map[string]TabStats)
	c.tabs.Range(func(k, v any) bool {
		out[k.(string)] = *v.(*TabStats)
		return true
	})
	return out
}

// ForgetTab drops the per-tab data of a deleted tab
func (c *Collector) ForgetTab(tabID string) {
	c.tabsMu.Lock()
	v, ok := c.tabs.LoadAndDelete(tabID)
	c.tabsMu.Unlock()
	if !ok {
		return
	}
	c.tracked.Add(-1)
	data := v.(*TabStats)
	c.catalogSize.WithLabelValues("matching").Sub(float64(data.LastMatching))
	c.catalogSize.WithLabelValues("visible").Sub(float64(data.LastVisible))
}

func (c *Collector) reasonCounter(reason string) *atomic.Int64 {
	if v, ok := c.byReason.Load(reason); ok {
		return v.(*atomic.Int64)
	}
	v, _ := c.byReason.LoadOrStore(reason, &atomic.Int64{})
	return v.(*atomic.Int64)
}

// tabData returns nil once MaxTrackedTabs are tracked
func (c *Collector) tabData(tabID string) *TabStats {
	if v, ok := c.tabs.Load(tabID); ok {
		return v.(*TabStats)
	}
	if c.tracked.Load() >= MaxTrackedTabs {
		return nil
	}
	v, loaded := c.tabs.LoadOrStore(tabID, &TabStats{})
	if !loaded {
		c.tracked.Add(1)
	}
	return v.(*TabStats)
}

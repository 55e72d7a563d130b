package ports

import (
	"time"
)

// Rebuild reasons reported to the StatsCollector
const (
	RebuildCreate   = "create"
	RebuildUpdate   = "update"
	RebuildShow     = "show"
	RebuildResource = "resource"
	RebuildRepair   = "repair"
	RebuildLoad     = "load"
)

// Validation outcomes reported to the StatsCollector
const (
	ValidationValid     = "valid"
	ValidationInvalid   = "invalid"
	ValidationConfirmed = "confirmed"
	ValidationDismissed = "dismissed"
)

type StatsCollector interface {
	// RecordRebuild is called once per catalog rebuild
	RecordRebuild(tabID, reason string, latency time.Duration, matching, visible int)
	RecordValidation(outcome string, tabs int)
	RecordQueued(tabs int)
	RecordTabCount(visible, hidden int)

	GetRebuildStats() RebuildStats
}

type RebuildStats struct {
	ByReason      map[string]int64 `json:"by_reason"`
	TotalRebuilds int64            `json:"total_rebuilds"`
	TotalLatency  time.Duration    `json:"total_latency"`
	LatencyP50    time.Duration    `json:"latency_p50"`
	LatencyP95    time.Duration    `json:"latency_p95"`
	LatencyP99    time.Duration    `json:"latency_p99"`
	Validations   int64            `json:"validations"`
	Repairs       int64            `json:"repairs"`
	Queued        int64            `json:"queued"`
}

package metrics

import (
	"sync/atomic"
	"time"
)

// Collector aggregates request counters plus domain alert counters. The
// ledger alert counts BalanceInconsistency occurrences, which indicate a
// sequencing bug rather than bad input.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	ledgerAlerts    uint64
	totalDurationMs uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordLedgerAlert() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ledgerAlerts, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	alerts := atomic.LoadUint64(&c.ledgerAlerts)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       errs,
		"ledgerAlertsTotal": alerts,
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
	}
}

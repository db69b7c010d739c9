package service

import (
	"sync/atomic"

	harvestsvc "archivist/internal/services/harvest/service"
)

// Counters are the run-wide accumulators shared by all workers
type Counters struct {
	processed atomic.Int64
	failed    atomic.Int64
	harvests  *harvestsvc.Collector
}

// NewCounters returns zeroed counters with a collector sized for workers
func NewCounters(workers int) *Counters {
	return &Counters{harvests: harvestsvc.NewCollector(workers)}
}

// Processed is the number of rows written successfully
func (c *Counters) Processed() int64 { return c.processed.Load() }

// Failed is the number of records that failed processing or writing
func (c *Counters) Failed() int64 { return c.failed.Load() }

// Harvests returns the deduplicated, sorted harvest ids seen so far
func (c *Counters) Harvests() []string { return c.harvests.IDs() }

// Collector exposes the harvest collector for per-worker registrars
func (c *Counters) Collector() *harvestsvc.Collector { return c.harvests }

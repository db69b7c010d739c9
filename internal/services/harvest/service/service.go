// Package service registers harvests as records from them are first seen and collects
// the harvest ids of a run across workers
package service

import (
	"context"
	"io"
	"sort"
	"sync"

	"archivist/internal/core/record"
	"archivist/internal/platform/logger"
	"archivist/internal/services/harvest/repo"
	pipedom "archivist/internal/services/pipeline/domain"
)

// Collector gathers harvest ids with one sub-list per worker
type Collector struct {
	mu    sync.Mutex
	lists [][]string
}

// NewCollector returns a collector sized for workers; it grows on demand
func NewCollector(workers int) *Collector {
	return &Collector{lists: make([][]string, max(workers, 0))}
}

// Add appends id to the worker's sub-list
func (c *Collector) Add(worker int, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.lists) <= worker {
		c.lists = append(c.lists, nil)
	}
	c.lists[worker] = append(c.lists[worker], id)
}

// IDs returns the flattened, deduplicated and sorted ids
func (c *Collector) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := map[string]struct{}{}
	for _, l := range c.lists {
		for _, id := range l {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Registrar is one worker's harvest hook; it is not safe for concurrent use
type Registrar struct {
	repo   repo.Storage
	coll   *Collector
	worker int
	onNew  func(ctx context.Context)
	seen   map[string]struct{}
}

var _ pipedom.HarvestRegistrar = (*Registrar)(nil)

// NewRegistrar returns the hook for worker; onNew runs after each newly seen harvest and may be nil
func NewRegistrar(r repo.Storage, c *Collector, worker int, onNew func(ctx context.Context)) *Registrar {
	return &Registrar{repo: r, coll: c, worker: worker, onNew: onNew, seen: map[string]struct{}{}}
}

// Register creates the harvest row when the store has none and records the id once per worker
func (r *Registrar) Register(ctx context.Context, harvestID, warcFilename string) {
	if harvestID == "" {
		return
	}
	if _, ok := r.seen[harvestID]; ok {
		return
	}
	log := logger.C(ctx).With().Str("component", "harvest").Str("harvest_id", harvestID).Logger()

	if !r.repo.Exists(ctx, harvestID) {
		info, _ := record.ParseHarvestInfo(warcFilename)
		log.Info().Str("type", info.Type).Str("date", info.Date).Msg("found record from a new harvest")
		if !r.repo.Create(ctx, harvestID, info) {
			log.Error().Msg("harvest row not written")
		}
	}
	r.seen[harvestID] = struct{}{}
	r.coll.Add(r.worker, harvestID)
	if r.onNew != nil {
		r.onNew(ctx)
	}
}

// Close releases the repo's connection
func (r *Registrar) Close() error {
	if c, ok := r.repo.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

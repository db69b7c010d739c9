// Package repo reads run, harvest, record and config rows from the key-value tables
package repo

import (
	"context"
	"sort"

	"archivist/internal/core/record"
	"archivist/internal/platform/store/kv"
	harvestrepo "archivist/internal/services/harvest/repo"
	"archivist/internal/services/ingest/stream"
	"archivist/internal/services/status"
)

// KV is the read side of the kv client
type KV interface {
	Get(ctx context.Context, table, key string) map[string][]byte
	Put(ctx context.Context, table, key string, fields map[string]any, maxRetries int) bool
	ScanByPrefix(ctx context.Context, table, prefix string) []kv.Row
	CellVersions(ctx context.Context, table, key, column string, versions int) [][]byte
}

// Repo defines the repository contract for status reads
type Repo interface {
	Run(ctx context.Context, id string) (status.Run, bool)
	Runs(ctx context.Context, prefix string) []status.Run
	Harvest(ctx context.Context, id string) (harvestrepo.Harvest, bool)
	Record(ctx context.Context, key string) (*record.Record, bool)
	ConfigVersions(ctx context.Context, key, column string, n int) [][]byte
}

type kvRepo struct {
	kv       KV
	tables   kv.Tables
	harvests harvestrepo.Storage
	rows     *stream.StoreFactory
}

// NewKV returns a repo over one shared kv client
func NewKV(c KV, tables kv.Tables, separateCols []string) Repo {
	return &kvRepo{
		kv:       c,
		tables:   tables,
		harvests: harvestrepo.NewKV(c, tables.Harvest, 1),
		rows:     stream.NewStore(nil, tables.Main, separateCols),
	}
}

func (r *kvRepo) Run(ctx context.Context, id string) (status.Run, bool) {
	cells := r.kv.Get(ctx, r.tables.Processes, id)
	if len(cells) == 0 {
		return status.Run{}, false
	}
	return status.Decode(id, cells), true
}

// Runs returns runs whose id starts with prefix, newest first
func (r *kvRepo) Runs(ctx context.Context, prefix string) []status.Run {
	rows := r.kv.ScanByPrefix(ctx, r.tables.Processes, prefix)
	out := make([]status.Run, 0, len(rows))
	for _, row := range rows {
		out = append(out, status.Decode(row.Key, row.Cells))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *kvRepo) Harvest(ctx context.Context, id string) (harvestrepo.Harvest, bool) {
	return r.harvests.Get(ctx, id)
}

func (r *kvRepo) Record(ctx context.Context, key string) (*record.Record, bool) {
	cells := r.kv.Get(ctx, r.tables.Main, key)
	if len(cells) == 0 {
		return nil, false
	}
	return r.rows.FromRow(kv.Row{Key: key, Cells: cells}), true
}

func (r *kvRepo) ConfigVersions(ctx context.Context, key, column string, n int) [][]byte {
	return r.kv.CellVersions(ctx, r.tables.Config, key, column, n)
}

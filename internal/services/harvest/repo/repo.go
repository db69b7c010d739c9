// Package repo stores harvest rows in the key-value harvest table
package repo

import (
	"context"
	"io"

	"archivist/internal/core/record"
)

// KV is the slice of the kv client the repo uses
type KV interface {
	Get(ctx context.Context, table, key string) map[string][]byte
	Put(ctx context.Context, table, key string, fields map[string]any, maxRetries int) bool
}

// Harvest is a stored harvest row
type Harvest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Date string `json:"date"`
}

// Storage defines the harvest repository
type Storage interface {
	Exists(ctx context.Context, id string) bool
	Create(ctx context.Context, id string, info record.HarvestInfo) bool
	Get(ctx context.Context, id string) (Harvest, bool)
}

type kvRepo struct {
	kv      KV
	table   string
	retries int
}

// NewKV returns harvest storage over one kv client
func NewKV(c KV, table string, maxRetries int) Storage {
	return &kvRepo{kv: c, table: table, retries: maxRetries}
}

// Exists implements Storage; read failures count as absent
func (r *kvRepo) Exists(ctx context.Context, id string) bool {
	return len(r.kv.Get(ctx, r.table, id)) > 0
}

// Create implements Storage
func (r *kvRepo) Create(ctx context.Context, id string, info record.HarvestInfo) bool {
	return r.kv.Put(ctx, r.table, id, map[string]any{
		"type": info.Type,
		"date": info.Date,
	}, r.retries)
}

// Close closes the underlying client when it can be closed
func (r *kvRepo) Close() error {
	if c, ok := r.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Get implements Storage
func (r *kvRepo) Get(ctx context.Context, id string) (Harvest, bool) {
	cells := r.kv.Get(ctx, r.table, id)
	if len(cells) == 0 {
		return Harvest{}, false
	}
	// both cells are written as plain strings
	return Harvest{ID: id, Type: string(cells["type"]), Date: string(cells["date"])}, true
}

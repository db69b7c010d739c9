// Package sink writes pipeline rows to the key-value store, part files or ClickHouse
package sink

import (
	"context"

	"archivist/internal/platform/logger"
	"archivist/internal/platform/store/kv"
	"archivist/internal/services/ingest/domain"
	"archivist/internal/services/ingest/stream"
	pipedom "archivist/internal/services/pipeline/domain"
)

// KVFactory gives every worker its own client on the main table
type KVFactory struct {
	newClient    func() *kv.Client
	table        string
	separateCols []string
	maxRetries   int
}

var _ domain.SinkFactory = (*KVFactory)(nil)

// NewKV returns the store sink factory
func NewKV(newClient func() *kv.Client, table string, separateCols []string, maxRetries int) *KVFactory {
	return &KVFactory{newClient: newClient, table: table, separateCols: separateCols, maxRetries: maxRetries}
}

// Open implements domain.SinkFactory
func (f *KVFactory) Open(context.Context, int, string) (domain.Sink, error) {
	return &kvSink{f: f, client: f.newClient()}, nil
}

type kvSink struct {
	f      *KVFactory
	client *kv.Client
}

// Write stores separate columns by name and the remainder under IF
func (s *kvSink) Write(ctx context.Context, row pipedom.Row) domain.Result {
	fields := Columns(row, s.f.separateCols)
	if s.client.Put(ctx, s.f.table, row.Key(), fields, s.f.maxRetries) {
		return domain.Result{Committed: 1}
	}
	return domain.Result{Lost: 1}
}

func (s *kvSink) Close(ctx context.Context) domain.Result {
	if err := s.client.Close(); err != nil {
		logger.C(ctx).Warn().Err(err).Str("component", "ingest").Msg("kv sink close failed")
	}
	return domain.Result{}
}

// Columns maps a column-layout row onto named fields: separate columns then the remainder
func Columns(row pipedom.Row, separateCols []string) map[string]any {
	fields := make(map[string]any, len(separateCols)+1)
	for i, c := range separateCols {
		if 1+i < len(row) {
			fields[c] = row[1+i]
		}
	}
	if n := len(separateCols) + 1; n < len(row) {
		fields[stream.RemainderColumn] = row[n]
	}
	return fields
}

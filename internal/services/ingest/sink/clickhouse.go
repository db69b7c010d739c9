package sink

import (
	"context"
	"encoding/json"

	"archivist/internal/platform/logger"
	"archivist/internal/platform/store"
	"archivist/internal/services/ingest/domain"
	pipedom "archivist/internal/services/pipeline/domain"
)

// ArchiveRecordsDDL creates the ClickHouse table rows are inserted into
const ArchiveRecordsDDL = `CREATE TABLE IF NOT EXISTS archive_records (
	run_id String,
	partition String,
	row_key String,
	columns Map(String, String),
	remainder String
) ENGINE = ReplacingMergeTree
ORDER BY (row_key, run_id)`

// DefaultBatch is the number of rows sent per insert
const DefaultBatch = 500

// ClickhouseFactory inserts rows into archive_records in batches
type ClickhouseFactory struct {
	ch           store.Clickhouse
	runID        string
	separateCols []string
	extraMode    bool
	batch        int
}

var _ domain.SinkFactory = (*ClickhouseFactory)(nil)

// NewClickhouse returns the ClickHouse sink factory; the connection is shared by all workers
func NewClickhouse(ch store.Clickhouse, runID string, separateCols []string, extraMode bool, batch int) *ClickhouseFactory {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &ClickhouseFactory{ch: ch, runID: runID, separateCols: separateCols, extraMode: extraMode, batch: batch}
}

// Ensure creates the target table
func (f *ClickhouseFactory) Ensure(ctx context.Context) error {
	return f.ch.Exec(ctx, ArchiveRecordsDDL)
}

// Open implements domain.SinkFactory
func (f *ClickhouseFactory) Open(_ context.Context, _ int, partition string) (domain.Sink, error) {
	return &chSink{f: f, partition: partition}, nil
}

type chSink struct {
	f         *ClickhouseFactory
	partition string
	rows      [][]any
}

func (s *chSink) Write(ctx context.Context, row pipedom.Row) domain.Result {
	r, err := s.f.toRow(s.partition, row)
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("component", "ingest").Str("row_key", row.Key()).Msg("row not encodable for clickhouse")
		return domain.Result{Lost: 1}
	}
	s.rows = append(s.rows, r)
	if len(s.rows) < s.f.batch {
		return domain.Result{}
	}
	return s.flush(ctx)
}

func (s *chSink) Close(ctx context.Context) domain.Result { return s.flush(ctx) }

func (s *chSink) flush(ctx context.Context) domain.Result {
	n := len(s.rows)
	if n == 0 {
		return domain.Result{}
	}
	err := s.f.ch.Insert(ctx, "archive_records", s.rows)
	s.rows = s.rows[:0]
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("component", "ingest").Int("rows", n).Msg("clickhouse batch lost")
		return domain.Result{Lost: n}
	}
	return domain.Result{Committed: n}
}

// toRow lays a pipeline row out as (run_id, partition, row_key, columns, remainder)
func (f *ClickhouseFactory) toRow(partition string, row pipedom.Row) ([]any, error) {
	cols := map[string]string{}
	var rest any
	if f.extraMode {
		rest = []any(row[1:])
	} else {
		fields := Columns(row, f.separateCols)
		for _, c := range f.separateCols {
			s, err := cellText(fields[c])
			if err != nil {
				return nil, err
			}
			cols[c] = s
		}
		if len(row) > len(f.separateCols)+1 {
			rest = row[len(f.separateCols)+1]
		}
	}
	b, err := json.Marshal(rest)
	if err != nil {
		return nil, err
	}
	return []any{f.runID, partition, row.Key(), cols, string(b)}, nil
}

func cellText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

package stream

import (
	"context"
	"io"
	"iter"
	"strings"

	"archivist/internal/core/record"
	"archivist/internal/platform/store/kv"
	"archivist/internal/services/ingest/domain"
)

// RemainderColumn holds every field not stored in a separate column
const RemainderColumn = "IF"

// hexPrefixes partition the main table by the first character of the row key
var hexPrefixes = strings.Split("0123456789abcdef", "")

// stringColumns are stored as raw UTF-8 and read back verbatim
var stringColumns = map[string]bool{
	record.URLKey:      true,
	record.RefersTo:    true,
	record.HarvestID:   true,
	record.Title:       true,
	record.PlainText:   true,
	record.Language:    true,
	record.WebPageType: true,
}

// StoreFactory re-reads previously processed rows from the main table
type StoreFactory struct {
	newClient    func() *kv.Client
	table        string
	separateCols []string
}

var _ domain.StreamFactory = (*StoreFactory)(nil)

// NewStore returns a factory scanning table; each opened partition gets its own client
func NewStore(newClient func() *kv.Client, table string, separateCols []string) *StoreFactory {
	return &StoreFactory{newClient: newClient, table: table, separateCols: separateCols}
}

// Partitions returns the sixteen hex key prefixes
func (f *StoreFactory) Partitions(context.Context) ([]string, error) {
	return append([]string(nil), hexPrefixes...), nil
}

// Open scans the rows under one prefix; rows are read from the backend as Next asks for them
func (f *StoreFactory) Open(ctx context.Context, partition string) (domain.Stream, error) {
	c := f.newClient()
	next, stop := iter.Pull2(c.Scan(ctx, f.table, partition))
	return &storeStream{f: f, client: c, next: next, stop: stop}, nil
}

type storeStream struct {
	f      *StoreFactory
	client *kv.Client
	next   func() (kv.Row, error, bool)
	stop   func()
}

func (s *storeStream) Next(context.Context) (*record.Record, error) {
	row, err, ok := s.next()
	if !ok {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return s.f.FromRow(row), nil
}

func (s *storeStream) Close() error {
	s.stop()
	return s.client.Close()
}

// FromRow rebuilds a record from a stored row; empty separate columns are left out
func (f *StoreFactory) FromRow(row kv.Row) *record.Record {
	fields := map[string]any{}
	if m, ok := kv.DecodeValue(row.Cells[RemainderColumn]).(map[string]any); ok {
		fields = m
	}
	for _, c := range f.separateCols {
		b, ok := row.Cells[c]
		if !ok || len(b) == 0 {
			continue
		}
		if stringColumns[c] {
			fields[c] = string(b)
			continue
		}
		fields[c] = kv.DecodeValue(b)
	}
	if _, ok := fields[record.ID]; !ok {
		fields[record.ID] = row.Key
	}
	rec := record.FromFields(fields, isRevisit(fields[record.RecHeaders]))
	rec.NormalizeInts()
	return rec
}

func isRevisit(hdrs any) bool {
	var t string
	switch h := hdrs.(type) {
	case map[string]any:
		t, _ = h["WARC-Type"].(string)
	case map[string]string:
		t = h["WARC-Type"]
	}
	return strings.EqualFold(t, "revisit")
}

package stream

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync/atomic"
	"testing"

	"archivist/internal/core/record"
	"archivist/internal/platform/store/kv"

	"github.com/google/go-cmp/cmp"
)

func TestFromRowRebuildsRecord(t *testing.T) {
	rest, err := kv.Encode(map[string]any{
		record.ID:          "urn:uuid:abc",
		record.URL:         "http://example.cz/",
		record.WARCOffset:  int32(512),
		record.RecHeaders:  map[string]any{"WARC-Type": "revisit"},
		record.HTTPHeaders: map[string]any{},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f := NewStore(nil, "main", []string{record.URLKey, record.Title, record.Language, record.Links})
	rec := f.FromRow(kv.Row{Key: "abc", Cells: map[string][]byte{
		RemainderColumn: rest,
		record.URLKey:   []byte("cz,example)/"),
		record.Title:    []byte("2024"),
		record.Language: {},
		record.Links:    []byte(`["http://example.cz/a"]`),
	}})

	if !rec.IsRevisit() {
		t.Fatalf("revisit lost")
	}
	if rec.Get(record.WARCOffset) != int64(512) {
		t.Fatalf("offset = %#v", rec.Get(record.WARCOffset))
	}
	if rec.Get(record.Title) != "2024" {
		t.Fatalf("title = %#v", rec.Get(record.Title))
	}
	if rec.Has(record.Language) {
		t.Fatalf("empty column should be absent")
	}
	if diff := cmp.Diff([]any{"http://example.cz/a"}, rec.Get(record.Links)); diff != "" {
		t.Fatalf("links (-want +got):\n%s", diff)
	}

	schema, err := record.LoadSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := schema.Validate(rec); err != nil {
		t.Fatalf("rebuilt record invalid: %v", err)
	}
}

func TestFromRowFallsBackToKey(t *testing.T) {
	rec := NewStore(nil, "main", nil).FromRow(kv.Row{Key: "k1", Cells: map[string][]byte{}})
	if rec.String(record.ID) != "k1" || rec.IsRevisit() {
		t.Fatalf("record = %v", rec.Fields())
	}
}

func TestStorePartitions(t *testing.T) {
	parts, _ := NewStore(nil, "main", nil).Partitions(context.Background())
	if len(parts) != 16 || parts[0] != "0" || parts[15] != "f" {
		t.Fatalf("partitions = %v", parts)
	}
}

// countingConn serves one table whose scan counts the rows handed out
type countingConn struct {
	rows   []kv.Row
	served atomic.Int32
	closed atomic.Bool
}

func (c *countingConn) Table(context.Context, string) (kv.Table, error) { return countingTable{c}, nil }
func (c *countingConn) Tables(context.Context) ([]kv.TableInfo, error)  { return nil, nil }
func (c *countingConn) CreateTable(context.Context, string, string, int) error {
	return nil
}
func (c *countingConn) EnableTable(context.Context, string) error { return nil }
func (c *countingConn) DeleteTable(context.Context, string) error { return nil }
func (c *countingConn) Close() error {
	c.closed.Store(true)
	return nil
}

type countingTable struct{ c *countingConn }

func (countingTable) Put(context.Context, []byte, map[string][]byte) error { return nil }
func (countingTable) Row(context.Context, []byte) (map[string][]byte, error) {
	return nil, nil
}
func (countingTable) Cells(context.Context, []byte, string, int) ([][]byte, error) {
	return nil, nil
}
func (t countingTable) Scan(_ context.Context, prefix []byte) iter.Seq2[kv.Row, error] {
	return func(yield func(kv.Row, error) bool) {
		for _, r := range t.c.rows {
			if !strings.HasPrefix(r.Key, string(prefix)) {
				continue
			}
			t.c.served.Add(1)
			if !yield(r, nil) {
				return
			}
		}
	}
}

func TestStoreStreamReadsLazily(t *testing.T) {
	conn := &countingConn{}
	for _, k := range []string{"a1", "a2", "a3", "a4", "b1"} {
		conn.rows = append(conn.rows, kv.Row{Key: k, Cells: map[string][]byte{}})
	}
	dial := kv.Dialer(func(context.Context) (kv.Conn, error) { return conn, nil })
	f := NewStore(func() *kv.Client { return kv.New(dial) }, "main", nil)

	ctx := context.Background()
	st, err := f.Open(ctx, "a")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if n := conn.served.Load(); n != 0 {
		t.Fatalf("%d rows read before the first Next", n)
	}
	rec, err := st.Next(ctx)
	if err != nil || rec.String(record.ID) != "a1" {
		t.Fatalf("first = %v, %v", rec, err)
	}
	if n := conn.served.Load(); n != 1 {
		t.Fatalf("rows read after one Next = %d", n)
	}
	if _, err := st.Next(ctx); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := conn.served.Load(); n != 2 || !conn.closed.Load() {
		t.Fatalf("after close: served %d closed %v", n, conn.closed.Load())
	}
}

func TestStoreStreamEndsAtPrefix(t *testing.T) {
	conn := &countingConn{rows: []kv.Row{{Key: "c1", Cells: map[string][]byte{}}, {Key: "d1", Cells: map[string][]byte{}}}}
	dial := kv.Dialer(func(context.Context) (kv.Conn, error) { return conn, nil })
	st, _ := NewStore(func() *kv.Client { return kv.New(dial) }, "main", nil).Open(context.Background(), "c")
	defer st.Close()

	var keys []string
	for {
		rec, err := st.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		keys = append(keys, rec.String(record.ID))
	}
	if diff := cmp.Diff([]string{"c1"}, keys); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
}

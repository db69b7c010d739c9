package kv

import (
	"context"
	"errors"
	"iter"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	perr "archivist/internal/platform/errors"

	"github.com/google/go-cmp/cmp"
)

// memStore is an in-memory backend shared by every memConn dialed from it
type memStore struct {
	mu       sync.Mutex
	tables   map[string]*TableInfo
	rows     map[string]map[string]map[string][][]byte // table -> row -> col -> versions (newest first)
	putFails int                                       // puts to fail before succeeding
	dials    int
	closes   int
}

func newMemStore() *memStore {
	return &memStore{tables: map[string]*TableInfo{}, rows: map[string]map[string]map[string][][]byte{}}
}

func (m *memStore) dialer() Dialer {
	return func(context.Context) (Conn, error) {
		m.mu.Lock()
		m.dials++
		m.mu.Unlock()
		return &memConn{m: m}, nil
	}
}

type memConn struct{ m *memStore }

func (c *memConn) Table(_ context.Context, name string) (Table, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	ti, ok := c.m.tables[name]
	if !ok {
		return nil, perr.NotFoundf("no table %s", name)
	}
	if !ti.Enabled {
		return nil, perr.Unavailablef("disabled")
	}
	return &memTable{m: c.m, name: name}, nil
}

func (c *memConn) Tables(context.Context) ([]TableInfo, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	var out []TableInfo
	for _, ti := range c.m.tables {
		out = append(out, *ti)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *memConn) CreateTable(_ context.Context, name, family string, maxVersions int) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.tables[name] = &TableInfo{Name: name, Family: family, MaxVersions: maxVersions, Enabled: true}
	c.m.rows[name] = map[string]map[string][][]byte{}
	return nil
}

func (c *memConn) EnableTable(_ context.Context, name string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.tables[name].Enabled = true
	return nil
}

func (c *memConn) DeleteTable(_ context.Context, name string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	delete(c.m.tables, name)
	delete(c.m.rows, name)
	return nil
}

func (c *memConn) Close() error {
	c.m.mu.Lock()
	c.m.closes++
	c.m.mu.Unlock()
	return nil
}

type memTable struct {
	m    *memStore
	name string
}

func (t *memTable) Put(_ context.Context, row []byte, cells map[string][]byte) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.m.putFails > 0 {
		t.m.putFails--
		return errors.New("connection reset by peer")
	}
	r := t.m.rows[t.name][string(row)]
	if r == nil {
		r = map[string][][]byte{}
		t.m.rows[t.name][string(row)] = r
	}
	limit := t.m.tables[t.name].MaxVersions
	for col, v := range cells {
		vs := append([][]byte{v}, r[col]...)
		if len(vs) > limit {
			vs = vs[:limit]
		}
		r[col] = vs
	}
	return nil
}

func (t *memTable) Row(_ context.Context, row []byte) (map[string][]byte, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	out := map[string][]byte{}
	for col, vs := range t.m.rows[t.name][string(row)] {
		out[col] = vs[0]
	}
	return out, nil
}

func (t *memTable) Scan(_ context.Context, prefix []byte) iter.Seq2[Row, error] {
	t.m.mu.Lock()
	var out []Row
	for key, cols := range t.m.rows[t.name] {
		if !strings.HasPrefix(key, string(prefix)) {
			continue
		}
		r := Row{Key: key, Cells: map[string][]byte{}}
		for col, vs := range cols {
			r.Cells[col] = vs[0]
		}
		out = append(out, r)
	}
	t.m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return func(yield func(Row, error) bool) {
		for _, r := range out {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (t *memTable) Cells(_ context.Context, row []byte, column string, versions int) ([][]byte, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	vs := t.m.rows[t.name][string(row)][column]
	if versions > 0 && len(vs) > versions {
		vs = vs[:versions]
	}
	return vs, nil
}

func newClient(t *testing.T, m *memStore) *Client {
	t.Helper()
	c := New(m.dialer())
	tables := Tables{Main: "main", Harvest: "harvest", Config: "config", Processes: "processes"}
	if err := c.EnsureAllTables(context.Background(), tables); err != nil {
		t.Fatalf("EnsureAllTables: %v", err)
	}
	return c
}

func TestPut_RetriesWithReconnect(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	m.putFails = 2

	ok := c.Put(context.Background(), "main", "row1", map[string]any{"title": "t"}, 3)
	if !ok {
		t.Fatalf("Put should succeed on the third attempt")
	}
	if got := c.Reconnects(); got != 2 {
		t.Fatalf("reconnects = %d, want 2", got)
	}
	if m.closes != 2 {
		t.Fatalf("connection closed %d times, want 2", m.closes)
	}
	if got := string(c.Get(context.Background(), "main", "row1")["title"]); got != "t" {
		t.Fatalf("stored title = %q", got)
	}
}

func TestPut_SingleAttemptGivesUp(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	m.putFails = 100

	if c.Put(context.Background(), "main", "row1", map[string]any{"a": "b"}, 1) {
		t.Fatalf("Put should fail")
	}
	if got := c.Reconnects(); got != 0 {
		t.Fatalf("no reconnect expected after the last attempt, got %d", got)
	}
	if m.putFails != 99 {
		t.Fatalf("expected exactly one attempt, remaining fails = %d", m.putFails)
	}
}

func TestPut_MissingTableFails(t *testing.T) {
	m := newMemStore()
	c := New(m.dialer())
	if c.Put(context.Background(), "nope", "k", map[string]any{"a": 1}, 2) {
		t.Fatalf("put into a missing table must fail")
	}
}

func TestPut_UnencodableValueFails(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	fields := map[string]any{"title": "t", "sentiment": math.NaN()}
	if c.Put(context.Background(), "main", "row1", fields, 3) {
		t.Fatalf("a row with an unencodable value must not report success")
	}
	if _, ok := m.rows["main"]["row1"]; ok {
		t.Fatalf("row written with a corrupted cell: %v", m.rows["main"]["row1"])
	}
	if got := c.Reconnects(); got != 0 {
		t.Fatalf("encoding failure should not reconnect, got %d", got)
	}
}

func TestPut_PrefixesFamily(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	c.Put(context.Background(), "main", "k", map[string]any{"a": "1", "cf1:b": "2"}, 1)

	raw := m.rows["main"]["k"]
	if _, ok := raw["cf1:a"]; !ok {
		t.Fatalf("family prefix not added: %v", raw)
	}
	if _, ok := raw["cf1:b"]; !ok {
		t.Fatalf("existing prefix should be kept once: %v", raw)
	}
	if _, ok := raw["cf1:cf1:b"]; ok {
		t.Fatalf("prefix doubled")
	}
}

func TestEnsureTable_Idempotent_EnablesDisabled(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	m.tables["config"].Enabled = false

	if err := c.EnsureTable(context.Background(), "config", 100); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if !m.tables["config"].Enabled {
		t.Fatalf("disabled table not enabled")
	}
	if m.tables["config"].MaxVersions != 100 {
		t.Fatalf("config versions = %d", m.tables["config"].MaxVersions)
	}
	if err := c.EnsureTable(context.Background(), "config", 100); err != nil {
		t.Fatalf("second EnsureTable: %v", err)
	}
	if len(m.tables) != 4 {
		t.Fatalf("tables = %d, want 4", len(m.tables))
	}
}

func TestReads_BestEffort(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	ctx := context.Background()

	if c.HasRow(ctx, "harvest", "h1") {
		t.Fatalf("absent row reported present")
	}
	c.Put(ctx, "harvest", "h1", map[string]any{"type": "CZ", "date": "20151224"}, 1)
	if !c.HasRow(ctx, "harvest", "h1") {
		t.Fatalf("row not found after put")
	}
	if c.Get(ctx, "missing", "h1") != nil || c.ScanByPrefix(ctx, "missing", "") != nil {
		t.Fatalf("reads on a missing table should come back empty")
	}

	c.Put(ctx, "main", "ab1", map[string]any{"x": "1"}, 1)
	c.Put(ctx, "main", "ab2", map[string]any{"x": "2"}, 1)
	c.Put(ctx, "main", "b1", map[string]any{"x": "3"}, 1)
	rows := c.ScanByPrefix(ctx, "main", "ab")
	var keys []string
	for _, r := range rows {
		keys = append(keys, r.Key+"="+string(r.Cells["x"]))
	}
	if diff := cmp.Diff([]string{"ab1=1", "ab2=2"}, keys); diff != "" {
		t.Fatalf("scan mismatch (-want +got):\n%s", diff)
	}
}

func TestCellVersions(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	ctx := context.Background()
	for _, v := range []string{"v1", "v2", "v3"} {
		c.Put(ctx, "config", "HTML", map[string]any{"algseq": v}, 1)
		c.Put(ctx, "main", "k", map[string]any{"algseq": v}, 1)
	}
	var got []string
	for _, b := range c.CellVersions(ctx, "config", "HTML", "algseq", 10) {
		got = append(got, string(b))
	}
	if diff := cmp.Diff([]string{"v3", "v2", "v1"}, got); diff != "" {
		t.Fatalf("versions (-want +got):\n%s", diff)
	}
	if n := len(c.CellVersions(ctx, "main", "k", "algseq", 10)); n != 1 {
		t.Fatalf("main keeps one version, got %d", n)
	}
}

func TestClose_Redials(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !c.Put(context.Background(), "main", "k", map[string]any{"a": "b"}, 1) {
		t.Fatalf("put after close should redial")
	}
	if m.dials != 2 {
		t.Fatalf("dials = %d, want 2", m.dials)
	}
}

func TestPutRowsFromJSON(t *testing.T) {
	m := newMemStore()
	c := newClient(t, m)
	in := strings.NewReader(`{
		"HTML": {"algseq": ["HTMLTextExtractor", "LanguageIdentifier"], "params": {"minCount": 3}},
		"PDF":  {"algseq": []}
	}`)
	written, failed, err := c.PutRowsFromJSON(context.Background(), "config", in, 2)
	if err != nil || written != 2 || failed != 0 {
		t.Fatalf("import = (%d, %d, %v)", written, failed, err)
	}
	row := c.Get(context.Background(), "config", "HTML")
	if got := string(row["params"]); got != `{"minCount":3}` {
		t.Fatalf("nested object should be stored as JSON, got %q", got)
	}
	if got := string(row["algseq"]); got != `["HTMLTextExtractor","LanguageIdentifier"]` {
		t.Fatalf("list stored as %q", got)
	}

	if _, _, err := c.PutRowsFromJSON(context.Background(), "config", strings.NewReader(`[1]`), 1); !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("want JSON error, got %v", err)
	}
}

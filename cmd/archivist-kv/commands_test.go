package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/store/kv"
	"archivist/internal/platform/testkit"
)

type fakeAdmin struct {
	ensured  kv.Tables
	deleted  []string
	imported string
	rows     []kv.Row
	versions [][]byte
}

func (f *fakeAdmin) EnsureAllTables(_ context.Context, t kv.Tables) error {
	f.ensured = t
	return nil
}

func (f *fakeAdmin) DeleteTable(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeAdmin) PutRowsFromJSON(_ context.Context, table string, r io.Reader, _ int) (int, int, error) {
	b, _ := io.ReadAll(r)
	f.imported = table + ":" + string(b)
	return 2, 1, nil
}

func (f *fakeAdmin) ScanByPrefix(context.Context, string, string) []kv.Row { return f.rows }

func (f *fakeAdmin) CellVersions(context.Context, string, string, string, int) [][]byte {
	return f.versions
}

func cfg() kv.Config {
	return kv.Config{Family: "cf1", MaxRetries: 3, Tables: kv.Tables{Main: "main", Harvest: "harvest", Config: "config", Processes: "processes"}}
}

func TestEnsureAndDelete(t *testing.T) {
	t.Parallel()
	f := &fakeAdmin{}
	if err := run(context.Background(), f, cfg(), []string{"ensure"}, io.Discard); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if f.ensured.Config != "config" {
		t.Fatalf("ensured %+v", f.ensured)
	}
	if err := run(context.Background(), f, cfg(), []string{"delete", "-table", "main"}, io.Discard); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.deleted) != 1 || f.deleted[0] != "main" {
		t.Fatalf("deleted %v", f.deleted)
	}
}

func TestImportReportsCounts(t *testing.T) {
	t.Parallel()
	path := testkit.TempFile(t, "rows.json", `{"topics":{"value":"x"}}`)
	f := &fakeAdmin{}
	var out bytes.Buffer
	if err := run(context.Background(), f, cfg(), []string{"import", "-table", "config", "-file", path}, &out); err != nil {
		t.Fatalf("import: %v", err)
	}
	if out.String() != "written=2 failed=1\n" {
		t.Fatalf("output %q", out.String())
	}
	if !strings.HasPrefix(f.imported, "config:{") {
		t.Fatalf("imported %q", f.imported)
	}
	err := run(context.Background(), f, cfg(), []string{"import", "-table", "config", "-file", filepath.Join(t.TempDir(), "missing.json")}, &out)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestScanAndVersionsPrintJSONLines(t *testing.T) {
	t.Parallel()
	f := &fakeAdmin{
		rows:     []kv.Row{{Key: "r1", Cells: map[string][]byte{"type": []byte("Serial")}}},
		versions: [][]byte{[]byte("new"), []byte("old")},
	}
	var out bytes.Buffer
	if err := run(context.Background(), f, cfg(), []string{"scan", "-table", "harvest"}, &out); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != `{"cells":{"type":"Serial"},"key":"r1"}` {
		t.Fatalf("scan output %q", got)
	}

	out.Reset()
	if err := run(context.Background(), f, cfg(), []string{"versions", "-table", "config", "-row", "topics", "-col", "value"}, &out); err != nil {
		t.Fatalf("versions: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[0] != `{"value":"new","version":0}` {
		t.Fatalf("versions output %q", lines)
	}
}

func TestRunRejectsBadInvocations(t *testing.T) {
	t.Parallel()
	f := &fakeAdmin{}
	cases := map[string][]string{
		"empty":           nil,
		"unknown":         {"drop-everything"},
		"scan no table":   {"scan"},
		"versions no col": {"versions", "-table", "config", "-row", "r"},
		"bad flag":        {"scan", "-nope"},
	}
	for name, argv := range cases {
		if err := run(context.Background(), f, cfg(), argv, io.Discard); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

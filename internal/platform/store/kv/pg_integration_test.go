//go:build integration_pg
// +build integration_pg

package kv

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())
}

func TestPG_EndToEnd(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	c := New(Dial(dsn, nil, 0))
	t.Cleanup(func() { _ = c.Close() })

	tables := Tables{Main: "main", Harvest: "harvest", Config: "config", Processes: "processes"}
	if err := c.EnsureAllTables(ctx, tables); err != nil {
		t.Fatalf("EnsureAllTables: %v", err)
	}
	if err := c.EnsureAllTables(ctx, tables); err != nil {
		t.Fatalf("EnsureAllTables (again): %v", err)
	}

	if !c.Put(ctx, "main", "abc", map[string]any{"title": "T", "IF": map[string]any{"url": "u"}}, 3) {
		t.Fatalf("put failed")
	}
	row := c.Get(ctx, "main", "abc")
	if string(row["title"]) != "T" {
		t.Fatalf("title = %q", row["title"])
	}
	if m, err := DecodeMap(row["IF"]); err != nil || m["url"] != "u" {
		t.Fatalf("IF = %v (%v)", m, err)
	}
	if !c.HasRow(ctx, "main", "abc") || c.HasRow(ctx, "main", "zzz") {
		t.Fatalf("HasRow mismatch")
	}

	for i := 0; i < 3; i++ {
		c.Put(ctx, "config", "HTML", map[string]any{"algseq": fmt.Sprintf("v%d", i)}, 1)
		c.Put(ctx, "processes", "run", map[string]any{"operation_status": fmt.Sprintf("s%d", i)}, 1)
	}
	if vs := c.CellVersions(ctx, "config", "HTML", "algseq", 10); len(vs) != 3 || string(vs[0]) != "v2" {
		t.Fatalf("config versions = %q", vs)
	}
	if vs := c.CellVersions(ctx, "processes", "run", "operation_status", 10); len(vs) != 1 {
		t.Fatalf("processes keeps one version, got %d", len(vs))
	}

	c.Put(ctx, "main", "abd", map[string]any{"title": "U"}, 1)
	c.Put(ctx, "main", "b", map[string]any{"title": "V"}, 1)
	if rows := c.ScanByPrefix(ctx, "main", "ab"); len(rows) != 2 || rows[0].Key != "abc" {
		t.Fatalf("scan = %+v", rows)
	}

	if err := c.DeleteTable(ctx, "processes"); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}
	if c.Put(ctx, "processes", "run", map[string]any{"x": "y"}, 1) {
		t.Fatalf("put into a deleted table must fail")
	}
}

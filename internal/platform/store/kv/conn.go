// Package kv is the resilient wide-column key-value client the archive pipeline writes through
//
// Rows are addressed by key and hold cells named "<family>:<qualifier>" with a bounded
// number of timestamped versions per cell. The Postgres backend in pg.go maps this model
// onto one physical table per logical table.
package kv

import (
	"context"
	"iter"
)

// DefaultFamily is the single column family every table is created with
const DefaultFamily = "cf1"

// Conn is one live connection to the store
type Conn interface {
	Table(ctx context.Context, name string) (Table, error)
	Tables(ctx context.Context) ([]TableInfo, error)
	CreateTable(ctx context.Context, name, family string, maxVersions int) error
	EnableTable(ctx context.Context, name string) error
	DeleteTable(ctx context.Context, name string) error
	Close() error
}

// Table is a handle for data operations on one table
type Table interface {
	Put(ctx context.Context, row []byte, cells map[string][]byte) error
	Row(ctx context.Context, row []byte) (map[string][]byte, error)
	// Scan yields rows in key order as they are read; a yielded error ends the sequence
	Scan(ctx context.Context, prefix []byte) iter.Seq2[Row, error]
	Cells(ctx context.Context, row []byte, column string, versions int) ([][]byte, error)
}

// TableInfo describes a table in the catalog
type TableInfo struct {
	Name        string
	Family      string
	MaxVersions int
	Enabled     bool
}

// Row is one stored row; cell names keep their family prefix
type Row struct {
	Key   string
	Cells map[string][]byte
}

// Dialer opens a fresh connection
type Dialer func(ctx context.Context) (Conn, error)

// Package source lists, opens and creates input and output objects by URI scheme
// file: paths (or bare paths) go to the local filesystem, gs:// to Google Cloud Storage
package source

import (
	"context"
	"io"
	"strings"
	"sync"

	perr "archivist/internal/platform/errors"
)

// FS is one backing store
type FS interface {
	// List expands a glob into matching object URIs, sorted
	List(ctx context.Context, pattern string) ([]string, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	Create(ctx context.Context, uri string) (io.WriteCloser, error)
}

// Mux dispatches to the local filesystem or GCS by scheme
// the GCS client is created on first use
type Mux struct {
	local FS

	mu      sync.Mutex
	gcs     FS
	dialGCS func(ctx context.Context) (FS, error)
}

var _ FS = (*Mux)(nil)

// New returns a Mux for cfg
func New(cfg Config) *Mux {
	return &Mux{
		local:   Local{},
		dialGCS: func(ctx context.Context) (FS, error) { return NewGCS(ctx, cfg) },
	}
}

// IsGCS reports whether uri names a GCS object or pattern
func IsGCS(uri string) bool { return strings.HasPrefix(uri, "gs://") }

func (m *Mux) pick(ctx context.Context, uri string) (FS, error) {
	if !IsGCS(uri) {
		return m.local, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gcs != nil {
		return m.gcs, nil
	}
	if m.dialGCS == nil {
		return nil, perr.Unavailablef("source: gcs not configured")
	}
	fs, err := m.dialGCS(ctx)
	if err != nil {
		return nil, err
	}
	m.gcs = fs
	return fs, nil
}

func (m *Mux) List(ctx context.Context, pattern string) ([]string, error) {
	fs, err := m.pick(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return fs.List(ctx, pattern)
}

func (m *Mux) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	fs, err := m.pick(ctx, uri)
	if err != nil {
		return nil, err
	}
	return fs.Open(ctx, uri)
}

func (m *Mux) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	fs, err := m.pick(ctx, uri)
	if err != nil {
		return nil, err
	}
	return fs.Create(ctx, uri)
}

// Close releases the GCS client when one was created
func (m *Mux) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.gcs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Join appends a name to a directory URI of either scheme
func Join(dir, name string) string {
	return strings.TrimRight(dir, "/") + "/" + name
}

// globStart returns the index of the first glob meta character or -1
func globStart(s string) int { return strings.IndexAny(s, "*?[") }

// Package store opens the optional storage backends a process needs
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archivist/internal/platform/logger"
	"archivist/internal/platform/store/kv"
	"archivist/internal/platform/store/pg"

	"github.com/prometheus/client_golang/prometheus"
)

// Store is the facade for optional backends
// zero value is safe but does nothing
type Store struct {
	// Log is the logger used by subclients
	// zero means a no op zerolog logger
	Log logger.Logger

	// PG is the postgres pool, nil when disabled
	PG *pg.PG

	// CH is the clickhouse seam, nil when disabled
	CH Clickhouse

	pgURL  string
	pgSlow time.Duration

	metrics prometheus.Registerer
}

// Clickhouse is a tiny seam for columnar writes
type Clickhouse interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Insert(ctx context.Context, table string, rows [][]any) error
	Ping(ctx context.Context) error
	Close() error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open constructs a Store with the requested backends
// backends not enabled in cfg remain nil on the Store
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	// defaults for zero logger to avoid nil checks
	s.Log = s.Log.With().Logger()

	if cfg.PG.Enabled {
		p, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = p
		s.pgURL = cfg.PG.URL
		s.pgSlow = cfg.PG.SlowQuery
	}

	if cfg.CH.Enabled {
		chClient, err := openCH(ctx, cfg, s)
		if err != nil {
			s.PG.Close()
			return nil, err
		}
		s.CH = chClient
	}

	return s, nil
}

// KVDialer returns a dialer for per-worker key-value clients
// every dial opens its own Postgres session so a reconnect never disturbs other workers
func (s *Store) KVDialer() kv.Dialer {
	if s == nil || s.pgURL == "" {
		return kv.FromPool(nil)
	}
	var tracer pg.Tracer
	if s.PG != nil {
		tracer = s.PG.Tracer
	}
	return kv.Dial(s.pgURL, tracer, s.pgSlow)
}

// SharedKVDialer returns a dialer backed by the store's pool, for concurrent readers
func (s *Store) SharedKVDialer() kv.Dialer {
	if s == nil {
		return kv.FromPool(nil)
	}
	return kv.FromPool(s.PG)
}

// Guard verifies all configured seams the Store knows about
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	if s.PG != nil && s.PG.Pool != nil {
		if err := s.PG.Pool.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pg: %w", err))
		}
	}
	if s.CH != nil {
		if err := s.CH.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ch: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all initialized backends gracefully
// nil backends are ignored
func (s *Store) Close(_ context.Context) error {
	var errs []error
	if s.CH != nil {
		if e := s.CH.Close(); e != nil {
			errs = append(errs, e)
		}
	}
	s.PG.Close()
	return errors.Join(errs...)
}

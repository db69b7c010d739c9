package store

import (
	"context"
	"errors"
	"time"

	"archivist/internal/platform/logger"
	"archivist/internal/platform/store/ch"
)

// chConn is the part of *ch.CH the adapter needs
type chConn interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Insert(ctx context.Context, table string, rows [][]any) error
	Ping(ctx context.Context) error
	Close() error
}

var _ chConn = (*ch.CH)(nil)

// newCHAdapter wraps a clickhouse client and optionally logs every statement
func newCHAdapter(c chConn, log logger.Logger, logSQL bool) Clickhouse {
	return &clickhouseAdapter{inner: c, log: log.With().Str("component", "ch").Logger(), logSQL: logSQL}
}

// clickhouseAdapter adapts a clickhouse client to the store.Clickhouse interface
type clickhouseAdapter struct {
	inner  chConn
	log    logger.Logger
	logSQL bool
}

var _ Clickhouse = (*clickhouseAdapter)(nil)

func (a *clickhouseAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	start := time.Now()
	err := a.inner.Exec(ctx, sql, args...)
	a.trace("exec", sql, 0, start, err)
	return err
}

func (a *clickhouseAdapter) Insert(ctx context.Context, table string, rows [][]any) error {
	start := time.Now()
	err := a.inner.Insert(ctx, table, rows)
	a.trace("insert", table, len(rows), start, err)
	return err
}

// Ping verifies connectivity with ClickHouse
func (a *clickhouseAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil clickhouse adapter")
	}
	return a.inner.Ping(ctx)
}

func (a *clickhouseAdapter) Close() error { return a.inner.Close() }

func (a *clickhouseAdapter) trace(op, what string, rows int, start time.Time, err error) {
	if !a.logSQL && err == nil {
		return
	}
	evt := a.log.Info()
	if err != nil {
		evt = a.log.Warn().Err(err)
	}
	evt.Str("op", op).Str("target", what).Int("rows", rows).
		Float64("elapsed_ms", float64(time.Since(start).Microseconds())/1000.0).
		Msg("ch statement")
}

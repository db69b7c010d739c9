package store

import (
	"context"
	"fmt"
	"time"

	chx "archivist/internal/platform/store/ch"
	"archivist/internal/platform/store/pg"
)

var sleep = time.Sleep

// openPG opens the pool and waits until it answers a ping
func openPG(ctx context.Context, cfg Config, s *Store) (*pg.PG, error) {
	var tracers []pg.Tracer
	if cfg.PG.LogSQL {
		tracers = append(tracers, pg.LogTracer(s.Log))
	}
	if s.metrics != nil {
		tracers = append(tracers, pg.MetricsTracer(s.metrics))
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		AppName:  "archivist-" + cfg.AppName,
		Slow:     cfg.PG.SlowQuery,
	}, pg.Tracers(tracers...))
	if err != nil {
		return nil, err
	}

	const (
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)
	maxAttempts := cfg.PG.ConnectRetries
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}

	var lastErr error
	backoff := backoffStart
	for i := 0; i < maxAttempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(toCtx)
		cancel()

		if lastErr == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}
		s.Log.Warn().Err(lastErr).Int("attempt", i+1).Msg("store: postgres not ready")
		sleep(backoff)
		backoff = min(backoff*2, backoffCeiling)
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", maxAttempts, lastErr)
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
	})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c, s.Log, cfg.CH.LogSQL), nil
}

// Package pg opens the Postgres pool behind the key-value store and traces the statements run on it
package pg

import (
	"context"
	"time"

	perr "archivist/internal/platform/errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is what Open needs to build a pool
type Config struct {
	URL      string
	MaxConns int32
	// AppName shows up as application_name in pg_stat_activity
	AppName string
	// Slow is the latency at which a statement is flagged; zero flags nothing
	Slow time.Duration
}

// PG is the shared pool plus the tracing settings every kv connection inherits
type PG struct {
	Pool   *pgxpool.Pool
	Tracer Tracer
	Slow   time.Duration
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg into a pool config, lets tune adjust it and creates the pool; it does not ping
func Open(ctx context.Context, cfg Config, tracer Tracer, tune ...func(*pgxpool.Config)) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "pg: bad database url")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		if pcfg.ConnConfig.RuntimeParams == nil {
			pcfg.ConnConfig.RuntimeParams = map[string]string{}
		}
		pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	for _, f := range tune {
		f(pcfg)
	}

	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "pg: create pool")
	}
	return &PG{Pool: pool, Tracer: tracer, Slow: cfg.Slow}, nil
}

// Close closes the pool; nil receivers and pools are fine
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

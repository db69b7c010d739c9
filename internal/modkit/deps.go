// Package modkit provides module wiring and the shared dependency bundle
package modkit

import (
	"archivist/internal/adapters/source"
	"archivist/internal/platform/config"
	"archivist/internal/platform/logger"
	"archivist/internal/platform/store"
	"archivist/internal/platform/store/kv"
	"archivist/internal/platform/store/pg"

	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds what a binary opened and hands to its modules; nil fields are backends it did not configure
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  *pg.PG
	CH  store.Clickhouse

	// KV dials a fresh key-value connection; each worker dials its own
	KV kv.Dialer
	// FS lists, opens and creates objects by URI scheme
	FS source.FS
	// Metrics is where modules register collectors, nil disables them
	Metrics prometheus.Registerer
}

// HasKV reports whether a key-value dialer is wired
func (d Deps) HasKV() bool { return d.KV != nil }

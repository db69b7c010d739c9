// Command archivist-kv inspects and maintains the key-value tables
package main

import (
	"context"
	"os"

	"archivist/internal/platform/config"
	"archivist/internal/platform/logger"
	"archivist/internal/platform/store"
	"archivist/internal/platform/store/kv"
)

func main() {
	root := config.New()
	logger.Init(logger.FromEnv("archivist-kv"))
	l := logger.Get()

	stCfg := store.FromConfig(root, "kv-admin")
	if !stCfg.PG.Enabled {
		l.Panic().Msg("SERVICE_PGSQL_DBURL is required")
	}
	ctx := context.Background()
	st, err := store.Open(ctx, stCfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	kvCfg := kv.FromConfig(root)
	c := kv.New(st.SharedKVDialer(), kv.WithFamily(kvCfg.Family))
	defer func() { _ = c.Close() }()

	if err := run(ctx, c, kvCfg, os.Args[1:], os.Stdout); err != nil {
		l.Error().Err(err).Msg("kv command failed")
		os.Exit(1)
	}
}

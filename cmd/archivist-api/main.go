// @title         Archivist API
// @version       0.1.0
// @description   Read only status of archive processing runs

package main

import (
	"context"
	"os/signal"
	"syscall"

	"archivist/internal/platform/config"
	"archivist/internal/platform/logger"
	phttp "archivist/internal/platform/net/http"
	"archivist/internal/platform/store"

	"archivist/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	logger.Init(logger.FromEnv("archivist-api"))
	l := logger.Get()

	stCfg := store.FromConfig(root, "api")
	if !stCfg.PG.Enabled {
		l.Panic().Msg("SERVICE_PGSQL_DBURL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, stCfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_ADDR and the *_TIMEOUT keys); Run drains it when ctx ends
	srv := phttp.NewServer(apiCfg)

	release := api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)
	defer release()

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

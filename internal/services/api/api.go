// Package api provides the read-only status API
package api

import (
	"archivist/internal/platform/config"
	"archivist/internal/platform/logger"
	phttp "archivist/internal/platform/net/http"
	"archivist/internal/platform/net/middleware"
	"archivist/internal/platform/store"

	"archivist/internal/modkit"
	"archivist/internal/modkit/httpkit"
	"archivist/internal/modkit/module"
	"archivist/internal/modkit/swaggerkit"

	metamod "archivist/internal/services/api/meta/module"
	runsmod "archivist/internal/services/api/runs/module"
	pipemod "archivist/internal/services/pipeline/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router; the returned func releases module clients
func Mount(r phttp.Router, opt Options) func() {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
		KV:  opt.Store.SharedKVDialer(),
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// record rows are split into the same separate columns the batch writes
	var sepCols []string
	if po, err := pipemod.FromConfig(opt.Config); err == nil {
		sepCols = po.SeparateCols
	} else {
		deps.Log.Warn().Err(err).Msg("api: pipeline options unreadable; records show the remainder only")
	}

	runs := runsmod.New(deps, sepCols)
	mods := []module.Module{
		metamod.New(deps),
		runs,
	}

	// load balancers poll /health outside the api stack
	r.Use(middleware.Heartbeat("/health"))
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})

	return func() { _ = runs.Close() }
}

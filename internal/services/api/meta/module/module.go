// Package module wires meta endpoints into the API
package module

import (
	"time"

	"archivist/internal/core/algorithms"
	modkit "archivist/internal/modkit"
	"archivist/internal/modkit/module"
	phttp "archivist/internal/platform/net/http"
	pipemod "archivist/internal/services/pipeline/module"

	metahttp "archivist/internal/services/api/meta/http"
)

// Module serves /meta
type Module struct {
	modkit.Base
	hd metahttp.Deps
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	hd := metahttp.Deps{
		ServiceName: "archivist-api",
		StartedAt:   time.Now(),
		Pipeline:    describePipeline(deps),
		Modules:     module.Names,
	}
	if deps.PG != nil && deps.PG.Pool != nil {
		hd.PG = deps.PG.Pool
	}
	if deps.CH != nil {
		hd.CH = deps.CH
	}
	return &Module{Base: modkit.NewBase("meta", "/meta", opts...), hd: hd}
}

// describePipeline reports the built-in algorithms and the MIME groups from the environment
func describePipeline(deps modkit.Deps) metahttp.PipelineResponse {
	out := metahttp.PipelineResponse{Algorithms: algorithms.Builtins().Names()}
	opts, err := pipemod.FromConfig(deps.Cfg)
	if err != nil {
		deps.Log.Warn().Err(err).Msg("meta: pipeline options unreadable")
		return out
	}
	for _, g := range opts.MimeGroups {
		out.MimeGroups = append(out.MimeGroups, metahttp.MimeGroup{Name: g.Name, Pattern: g.Pattern})
	}
	return out
}

// MountRoutes mounts the meta routes under the module prefix
func (m *Module) MountRoutes(r phttp.Router) {
	m.Mount(r, func(sub phttp.Router) { metahttp.Register(sub, m.hd) })
}

// Ports implements module.Module; meta exposes none
func (m *Module) Ports() any { return nil }

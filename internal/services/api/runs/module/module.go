// Package module wires run status reads into the API
package module

import (
	modkit "archivist/internal/modkit"
	phttp "archivist/internal/platform/net/http"
	"archivist/internal/platform/store/kv"
	runshttp "archivist/internal/services/api/runs/http"
	runsrepo "archivist/internal/services/api/runs/repo"
	runssvc "archivist/internal/services/api/runs/service"
)

// Ports defines the runs module ports
type Ports struct {
	Reader runssvc.Service
}

// Module serves /status over one kv client
type Module struct {
	modkit.Base

	client *kv.Client
	svc    runssvc.Service
}

// New constructs the runs module; it reads through one client on the shared dialer
func New(deps modkit.Deps, separateCols []string, opts ...modkit.Option) *Module {
	cfg := kv.FromConfig(deps.Cfg)
	client := kv.New(deps.KV, kv.WithFamily(cfg.Family))
	return &Module{
		Base:   modkit.NewBase("runs", "/status", opts...),
		client: client,
		svc:    runssvc.New(runsrepo.NewKV(client, cfg.Tables, separateCols)),
	}
}

// MountRoutes mounts the status routes under the module prefix
func (m *Module) MountRoutes(r phttp.Router) {
	m.Mount(r, func(sub phttp.Router) { runshttp.Register(sub, m.svc) })
}

// Ports returns the module ports
func (m *Module) Ports() any { return Ports{Reader: m.svc} }

// Close releases the module's kv client
func (m *Module) Close() error { return m.client.Close() }

// Package module wires the pipeline router and executor from configuration
package module

import (
	"archivist/internal/core/algorithms"
	"archivist/internal/core/record"
	"archivist/internal/modkit"
	"archivist/internal/services/pipeline/domain"
	"archivist/internal/services/pipeline/service"
)

// Ports defines the pipeline module ports
type Ports struct {
	Executor *service.Service
	Router   *service.Router
}

// Run is what a single run adds on top of the environment: chains, output mode and id allow-list
type Run struct {
	Chains    []domain.ChainSpec
	ExtraMode bool
	AllowIDs  map[string]struct{}
}

// Module implements the pipeline module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New builds the router and executor; schema or algorithm construction errors are fatal for the run
func New(deps modkit.Deps, run Run) (*Module, error) {
	opts, err := FromConfig(deps.Cfg)
	if err != nil {
		return nil, err
	}
	schema, err := record.LoadSchema()
	if err != nil {
		return nil, err
	}

	router := service.NewRouter(opts.MimeGroups, algorithms.Builtins())
	if err := router.Configure(run.Chains, opts.Params()); err != nil {
		return nil, err
	}
	exec := service.New(service.Config{
		Filters:      opts.Filters,
		Unnecessary:  opts.Unnecessary,
		SeparateCols: opts.SeparateCols,
		ExtraMode:    run.ExtraMode,
		AllowIDs:     run.AllowIDs,
	}, router, schema)

	return &Module{deps: deps, opts: opts, ports: Ports{Executor: exec, Router: router}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Executor returns the shared executor
func (m *Module) Executor() *service.Service { return m.ports.Executor }

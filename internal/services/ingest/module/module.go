// Package module wires the job driver: input streams, output sinks and harvest hooks
package module

import (
	"context"

	"archivist/internal/modkit"
	"archivist/internal/modkit/module"
	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/store/kv"
	harvestrepo "archivist/internal/services/harvest/repo"
	harvestsvc "archivist/internal/services/harvest/service"
	"archivist/internal/services/ingest/domain"
	"archivist/internal/services/ingest/service"
	"archivist/internal/services/ingest/sink"
	"archivist/internal/services/ingest/stream"
	pipedom "archivist/internal/services/pipeline/domain"
	pipemod "archivist/internal/services/pipeline/module"
	pipesvc "archivist/internal/services/pipeline/service"

	"github.com/prometheus/client_golang/prometheus"
)

// Output sinks
const (
	OutputStore      = "store"
	OutputText       = "textfile"
	OutputTextExtra  = "textfile_extra"
	OutputClickhouse = "clickhouse"
)

// Run describes one invocation of the driver
type Run struct {
	// Input is a file: or gs:// pattern; empty re-reads the main table
	Input        string
	Output       string
	OutputURI    string
	RunID        string
	SeparateCols []string
	// Exec defaults to the executor of the registered pipeline module
	Exec *pipesvc.Service
	// OnHarvest runs after a worker first sees a harvest, typically a status update
	OnHarvest func(ctx context.Context)
}

// Ports defines the ingest module ports
type Ports struct {
	Driver *service.Service
}

// Module implements the ingest module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New builds the driver for run
func New(deps modkit.Deps, run Run) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if run.Exec == nil {
		if p, ok := module.PortsAs[pipemod.Ports]("pipeline"); ok {
			run.Exec = p.Executor
		}
	}
	if run.Exec == nil {
		return nil, perr.InvalidArgf("ingest: no pipeline executor")
	}
	newClient := func() *kv.Client { return kv.New(deps.KV, kv.WithFamily(opts.KV.Family)) }

	reg := deps.Metrics
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := service.NewMetrics(reg)

	var streams domain.StreamFactory
	if run.Input == "" {
		if !deps.HasKV() {
			return nil, perr.InvalidArgf("ingest: re-reading the store needs a kv backend")
		}
		streams = stream.NewStore(newClient, opts.KV.Tables.Main, run.SeparateCols)
	} else {
		if deps.FS == nil {
			return nil, perr.InvalidArgf("ingest: no source filesystem")
		}
		streams = stream.NewWARC(deps.FS, stream.WARCConfig{
			Pattern:          run.Input,
			AcceptedTypes:    opts.AcceptedTypes,
			MaxContentLength: opts.MaxContentLength,
		}, m.Skip)
	}

	var sinks domain.SinkFactory
	switch run.Output {
	case OutputStore:
		if !deps.HasKV() {
			return nil, perr.InvalidArgf("ingest: store output needs a kv backend")
		}
		sinks = sink.NewKV(newClient, opts.KV.Tables.Main, run.SeparateCols, opts.KV.MaxRetries)
	case OutputText, OutputTextExtra:
		if deps.FS == nil || run.OutputURI == "" {
			return nil, perr.InvalidArgf("ingest: %s output needs a target directory", run.Output)
		}
		sinks = sink.NewText(deps.FS, run.OutputURI)
	case OutputClickhouse:
		if deps.CH == nil {
			return nil, perr.InvalidArgf("ingest: clickhouse output needs SERVICE_CLICKHOUSE_DBURL")
		}
		sinks = sink.NewClickhouse(deps.CH, run.RunID, run.SeparateCols, false, opts.CHBatch)
	default:
		return nil, perr.InvalidArgf("ingest: unknown output %q", run.Output)
	}

	drv := service.New(streams, sinks, run.Exec, service.NewCounters(0), m).WithWorkers(opts.Workers)
	if run.Output == OutputStore {
		drv.WithHarvest(func(worker int) pipedom.HarvestRegistrar {
			repo := harvestrepo.NewKV(newClient(), opts.KV.Tables.Harvest, opts.KV.MaxRetries)
			return harvestsvc.NewRegistrar(repo, drv.Counters.Collector(), worker, run.OnHarvest)
		})
	}

	return &Module{deps: deps, opts: opts, ports: Ports{Driver: drv}}, nil
}

// Prepare creates output tables the sink needs
func (m *Module) Prepare(ctx context.Context) error {
	if f, ok := m.ports.Driver.Sinks.(*sink.ClickhouseFactory); ok {
		return f.Ensure(ctx)
	}
	return nil
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Driver returns the job driver
func (m *Module) Driver() *service.Service { return m.ports.Driver }

package main

import (
	"context"
	"flag"
	"os"

	"archivist/internal/adapters/source"
	"archivist/internal/modkit"
	"archivist/internal/modkit/module"
	"archivist/internal/platform/config"
	"archivist/internal/platform/logger"
	"archivist/internal/platform/metrics"
	"archivist/internal/platform/store"
	"archivist/internal/platform/store/kv"
	"archivist/internal/services/status"

	ingestmod "archivist/internal/services/ingest/module"
	pipemod "archivist/internal/services/pipeline/module"
)

func main() {
	root := config.New()
	logger.Init(logger.FromEnv("archivist"))
	l := logger.Get()

	a, err := parseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		l.Panic().Err(err).Msg("bad arguments")
	}

	stCfg := store.FromConfig(root, "batch")
	if a.needsStore() && !stCfg.PG.Enabled {
		l.Panic().Msg("-input-store and -output-store need SERVICE_PGSQL_DBURL")
	}
	if a.output == ingestmod.OutputClickhouse && !stCfg.CH.Enabled {
		l.Panic().Msg("-output-clickhouse needs SERVICE_CLICKHOUSE_DBURL")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := metrics.NewRegistry()
	reg.Serve(ctx, metrics.Addr(root))

	st, err := store.Open(ctx, stCfg, store.WithLogger(*l), store.WithMetrics(reg))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	fs := source.New(source.FromConfig(root))
	defer func() { _ = fs.Close() }()

	deps := modkit.Deps{
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Log:     *l,
		FS:      fs,
		Metrics: reg,
	}

	kvCfg := kv.FromConfig(root)
	var trackerOpts []status.Option
	if stCfg.PG.Enabled {
		deps.KV = st.KVDialer()
		admin := kv.New(deps.KV, kv.WithFamily(kvCfg.Family))
		if err := admin.EnsureAllTables(ctx, kvCfg.Tables); err != nil {
			l.Panic().Err(err).Msg("cannot prepare kv tables")
		}
		_ = admin.Close()
	}
	if a.output == ingestmod.OutputStore {
		statusKV := kv.New(deps.KV, kv.WithFamily(kvCfg.Family), kv.WithLogger(logger.Named("status")))
		defer func() { _ = statusKV.Close() }()
		trackerOpts = append(trackerOpts, status.WithKV(statusKV, kvCfg.Tables.Processes, kvCfg.MaxRetries))
	}
	if st.CH != nil {
		trackerOpts = append(trackerOpts, status.WithClickhouse(st.CH))
	}

	tracker := status.New(trackerOpts...)
	runID := tracker.Start(ctx, os.Args)
	ctx = logger.WithRun(ctx, runID)
	logger.C(ctx).Info().Str("output", a.output).Msg("run started")

	ids, err := loadIDs(ctx, fs, a.onlyIDs)
	if err != nil {
		tracker.Terminate(ctx, "cannot load record ids", err)
	}
	if ids != nil {
		logger.C(ctx).Info().Int("ids", len(ids)).Str("file", a.onlyIDs).Msg("record ids loaded")
	}

	pm, err := pipemod.New(deps, pipemod.Run{
		Chains:    a.chains,
		ExtraMode: a.output == ingestmod.OutputTextExtra,
		AllowIDs:  ids,
	})
	if err != nil {
		tracker.Terminate(ctx, "cannot build the pipeline", err)
	}
	module.Register(pm.Name(), pm.Ports())

	im, err := ingestmod.New(deps, ingestmod.Run{
		Input:        a.inputWARCs,
		Output:       a.output,
		OutputURI:    a.outputURI,
		RunID:        runID,
		SeparateCols: pm.Options().SeparateCols,
		OnHarvest:    tracker.HarvestSeen,
	})
	if err != nil {
		tracker.Terminate(ctx, "cannot build the job driver", err)
	}
	module.Register(im.Name(), im.Ports())

	tracker.Attach(im.Driver().Counters)
	if err := im.Prepare(ctx); err != nil {
		tracker.Terminate(ctx, "cannot prepare the output", err)
	}

	totals, err := im.Driver().Run(ctx)
	if err != nil {
		tracker.Terminate(ctx, "cannot process data", err)
	}
	tracker.Finish(ctx, status.Finished)

	snap := tracker.Snapshot()
	logger.C(ctx).Info().
		Int("partitions", totals.Partitions).
		Int64("processed", snap.RecordsProcessed).
		Int64("failed", snap.RecordsFailed).
		Strs("harvests", snap.Harvests).
		Msg("run finished")
}

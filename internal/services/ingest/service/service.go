// Package service implements the partitioned job driver: one worker per input partition,
// at most Workers at a time, each streaming records through the pipeline executor into its own sink
package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"archivist/internal/platform/logger"
	"archivist/internal/services/ingest/domain"
	pipedom "archivist/internal/services/pipeline/domain"
	pipesvc "archivist/internal/services/pipeline/service"
)

// Outcome labels on the records metric
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Partition states on the partitions metric
const (
	PartitionOpened = "opened"
	PartitionFailed = "failed"
	PartitionCut    = "cut_short"
)

// DefaultWorkers bounds concurrent partitions when Workers is unset
const DefaultWorkers = 16

// Totals summarizes a finished run
type Totals struct {
	Partitions int
	Processed  int64
	Failed     int64
	Harvests   []string
	Elapsed    time.Duration
}

// Service is the job driver
type Service struct {
	Streams  domain.StreamFactory
	Sinks    domain.SinkFactory
	Exec     *pipesvc.Service
	Counters *Counters
	Metrics  *Metrics
	// Workers caps how many partitions are open at once; each one holds its own backend connections
	Workers int

	// Harvest, when set, returns the harvest hook of a worker
	Harvest func(worker int) pipedom.HarvestRegistrar
}

// New constructs the driver
func New(streams domain.StreamFactory, sinks domain.SinkFactory, exec *pipesvc.Service, counters *Counters, m *Metrics) *Service {
	if streams == nil || sinks == nil || exec == nil {
		panic("ingest.Service requires streams, sinks and an executor")
	}
	if counters == nil {
		counters = NewCounters(0)
	}
	return &Service{Streams: streams, Sinks: sinks, Exec: exec, Counters: counters, Metrics: m, Workers: DefaultWorkers}
}

// WithWorkers sets the partition concurrency; n below 1 means one
func (s *Service) WithWorkers(n int) *Service {
	s.Workers = max(n, 1)
	return s
}

// WithHarvest sets the per-worker harvest hook factory
func (s *Service) WithHarvest(f func(worker int) pipedom.HarvestRegistrar) *Service {
	s.Harvest = f
	return s
}

// Run processes every partition, one goroutine each and at most Workers at a time, and waits for all of them
func (s *Service) Run(ctx context.Context) (Totals, error) {
	start := time.Now()
	parts, err := s.Streams.Partitions(ctx)
	if err != nil {
		return Totals{}, err
	}
	w := max(s.Workers, 1)
	log := logger.C(ctx).With().Str("component", "ingest").Logger()
	log.Info().Int("partitions", len(parts)).Int("workers", w).Msg("run starting")

	var wg sync.WaitGroup
	sem := make(chan struct{}, w)
launch:
	for i, p := range parts {
		select {
		case <-ctx.Done():
			log.Warn().Int("not_started", len(parts)-i).Msg("run cancelled, remaining partitions skipped")
			break launch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(worker int, part string) {
			defer func() { <-sem; wg.Done() }()
			s.runPartition(ctx, worker, part)
		}(i, p)
	}
	wg.Wait()

	t := Totals{
		Partitions: len(parts),
		Processed:  s.Counters.Processed(),
		Failed:     s.Counters.Failed(),
		Harvests:   s.Counters.Harvests(),
		Elapsed:    time.Since(start),
	}
	log.Info().
		Int("partitions", t.Partitions).
		Int64("processed", t.Processed).
		Int64("failed", t.Failed).
		Strs("harvests", t.Harvests).
		Dur("elapsed", t.Elapsed).
		Msg("run finished")
	return t, nil
}

func (s *Service) runPartition(ctx context.Context, worker int, part string) {
	ctx = logger.WithPartition(ctx, part)
	log := logger.C(ctx).With().Str("component", "ingest").Int("worker", worker).Logger()

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("partition aborted")
			s.partition(PartitionFailed)
		}
	}()

	st, err := s.Streams.Open(ctx, part)
	if err != nil {
		log.Error().Err(err).Msg("cannot open partition, skipping")
		s.partition(PartitionFailed)
		return
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("partition close failed")
		}
	}()

	sink, err := s.Sinks.Open(ctx, worker, part)
	if err != nil {
		log.Error().Err(err).Msg("cannot open sink, skipping partition")
		s.partition(PartitionFailed)
		return
	}
	s.partition(PartitionOpened)
	defer func() { s.apply(sink.Close(ctx)) }()

	exec := s.Exec
	if s.Harvest != nil {
		hook := s.Harvest(worker)
		if c, ok := hook.(io.Closer); ok {
			defer func() { _ = c.Close() }()
		}
		exec = exec.WithHarvest(hook)
	}

	var seen int
	for {
		rec, err := st.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error().Err(err).Int("records", seen).Msg("partition ended early, keeping results so far")
			s.partition(PartitionCut)
			break
		}
		seen++

		row, out := exec.Process(ctx, rec)
		switch out {
		case pipedom.Emitted:
			s.apply(sink.Write(ctx, row))
		case pipedom.Failed:
			s.Counters.failed.Add(1)
			s.record(OutcomeFailed, 1)
		default:
			s.record(OutcomeSkipped, 1)
		}
	}
	log.Info().Int("records", seen).Msg("partition done")
}

func (s *Service) apply(r domain.Result) {
	if r.Committed > 0 {
		s.Counters.processed.Add(int64(r.Committed))
		s.record(OutcomeProcessed, r.Committed)
	}
	if r.Lost > 0 {
		s.Counters.failed.Add(int64(r.Lost))
		s.record(OutcomeFailed, r.Lost)
	}
}

func (s *Service) record(outcome string, n int) {
	if s.Metrics != nil {
		s.Metrics.Records.WithLabelValues(outcome).Add(float64(n))
	}
}

func (s *Service) partition(state string) {
	if s.Metrics != nil {
		s.Metrics.Partitions.WithLabelValues(state).Inc()
	}
}

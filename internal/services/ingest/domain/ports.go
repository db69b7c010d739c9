// Package domain holds the ports between the job driver, its input streams and output sinks
package domain

import (
	"context"

	"archivist/internal/core/record"
	pipedom "archivist/internal/services/pipeline/domain"
)

// Stream yields the records of one partition in source order; io.EOF ends it
type Stream interface {
	Next(ctx context.Context) (*record.Record, error)
	Close() error
}

// StreamFactory enumerates partitions and opens them
type StreamFactory interface {
	Partitions(ctx context.Context) ([]string, error)
	Open(ctx context.Context, partition string) (Stream, error)
}

// Result counts rows a sink made durable or lost during one call
type Result struct {
	Committed int
	Lost      int
}

// Add sums two results
func (r Result) Add(o Result) Result {
	return Result{Committed: r.Committed + o.Committed, Lost: r.Lost + o.Lost}
}

// Sink receives the rows of one partition; it is owned by one worker
type Sink interface {
	Write(ctx context.Context, row pipedom.Row) Result
	Close(ctx context.Context) Result
}

// SinkFactory opens the sink of a worker
type SinkFactory interface {
	Open(ctx context.Context, worker int, partition string) (Sink, error)
}

// SkipHook observes records dropped before reaching the pipeline
type SkipHook func(reason string)

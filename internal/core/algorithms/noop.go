package algorithms

import (
	"context"

	"archivist/internal/core/record"
)

// NoopName is the registry name of Noop
const NoopName = "NoopAlgorithm"

// Noop returns the record unchanged
type Noop struct{}

func (Noop) Name() string { return NoopName }

func (Noop) Configure(Params) error { return nil }

func (Noop) Apply(_ context.Context, r *record.Record) (*record.Record, error) { return r, nil }

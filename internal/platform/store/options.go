package store

import (
	"archivist/internal/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Option adjusts a Store before its backends open
type Option func(*Store) error

// WithLogger routes backend logs, SQL traces included, through log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithMetrics records Postgres statement latency on reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Store) error {
		s.metrics = reg
		return nil
	}
}

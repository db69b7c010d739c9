package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the driver's Prometheus collectors
type Metrics struct {
	Records    *prometheus.CounterVec
	Skipped    *prometheus.CounterVec
	Partitions *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_records_total",
			Help: "Records handled by the pipeline, labeled by outcome.",
		}, []string{"outcome"}),
		Skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_records_skipped_total",
			Help: "Records skipped, labeled by reason.",
		}, []string{"reason"}),
		Partitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_partitions_total",
			Help: "Input partitions, labeled by state.",
		}, []string{"state"}),
	}
}

// Skip counts a record dropped for reason
func (m *Metrics) Skip(reason string) { m.Skipped.WithLabelValues(reason).Inc() }

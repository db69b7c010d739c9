package pg

import (
	"context"
	"errors"
	"strings"
	"time"

	"archivist/internal/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Event is one statement after it ran
type Event struct {
	SQL     string
	Args    int
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// NewEvent measures a statement started at start; slow of zero never flags
func NewEvent(sql string, args int, start time.Time, err error, slow time.Duration) Event {
	el := time.Since(start)
	return Event{SQL: sql, Args: args, Elapsed: el, Err: err, Slow: slow > 0 && el >= slow}
}

// Tracer observes statements
type Tracer interface {
	OnQuery(ctx context.Context, ev Event)
}

// Tracers combines the non-nil tracers; nil when none are left
func Tracers(ts ...Tracer) Tracer {
	var out multi
	for _, t := range ts {
		if t != nil {
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

type multi []Tracer

func (m multi) OnQuery(ctx context.Context, ev Event) {
	for _, t := range m {
		t.OnQuery(ctx, ev)
	}
}

// LogTracer logs every statement; slow ones warn and failed ones error
func LogTracer(log logger.Logger) Tracer {
	return logTracer{log: log.With().Str("component", "pg").Logger()}
}

type logTracer struct{ log logger.Logger }

func (l logTracer) OnQuery(ctx context.Context, ev Event) {
	log := l.log
	if id := logger.RunID(ctx); id != "" {
		log = log.With().Str("run_id", id).Logger()
	}
	evt := log.Info()
	switch {
	case ev.Err != nil:
		evt = log.Error().Err(ev.Err)
	case ev.Slow:
		evt = log.Warn()
	}
	evt.Str("sql", compact(ev.SQL)).
		Int("args", ev.Args).
		Dur("elapsed", ev.Elapsed).
		Bool("slow", ev.Slow).
		Msg("pg query")
}

// MetricsTracer records statement latency by verb and outcome in archivist_pg_query_seconds
func MetricsTracer(reg prometheus.Registerer) Tracer {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "archivist",
		Subsystem: "pg",
		Name:      "query_seconds",
		Help:      "Latency of key-value statements against Postgres",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"verb", "outcome"})
	if err := reg.Register(hist); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
		hist = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return metricsTracer{hist: hist}
}

type metricsTracer struct{ hist *prometheus.HistogramVec }

func (m metricsTracer) OnQuery(_ context.Context, ev Event) {
	outcome := "ok"
	if ev.Err != nil {
		outcome = "error"
	}
	m.hist.WithLabelValues(verb(ev.SQL), outcome).Observe(ev.Elapsed.Seconds())
}

// verb is the leading keyword of sql in lower case
func verb(sql string) string {
	f := strings.Fields(sql)
	if len(f) == 0 {
		return "unknown"
	}
	return strings.ToLower(f[0])
}

func compact(sql string) string { return strings.Join(strings.Fields(sql), " ") }

// Package metrics holds the process Prometheus registry and its HTTP exposure
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"archivist/internal/platform/config"
	"archivist/internal/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is a registry with the Go and process collectors installed
type Registry struct {
	*prometheus.Registry
}

// NewRegistry returns a fresh registry; tests use their own so collectors never clash
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{Registry: r}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// Addr reads ARCHIVIST_METRICS_ADDR; empty disables the endpoint
func Addr(cfg config.Conf) string {
	return cfg.Prefix("ARCHIVIST_").MayString("METRICS_ADDR", "")
}

// Serve exposes /metrics on addr until ctx is done; an empty addr is a no-op
func (r *Registry) Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log := logger.Named("metrics")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics endpoint stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	log.Info().Str("addr", addr).Msg("metrics endpoint listening")
}

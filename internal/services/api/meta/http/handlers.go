// Package http serves the /meta endpoints: liveness, readiness, build and pipeline info
package http

import (
	stdctx "context"
	"net/http"
	"sync"
	"time"

	"archivist/internal/core/version"
	"archivist/internal/modkit/httpkit"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	// PG and CH are pinged by /ready; nil means the backend is not configured
	PG Pinger
	CH Pinger
	// Pipeline describes what the batch runs can do
	Pipeline PipelineResponse
	// Modules lists the mounted API modules at request time
	Modules func() []string
}

type handlers struct {
	deps Deps
}

// readyTimeout bounds all backend pings of one /ready call
const readyTimeout = 2 * time.Second

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/pipeline", h.pipeline)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"       example:"true"`
	Service string `json:"service"  example:"archivist-api"`
	Started string `json:"started"  example:"2025-09-03T13:00:00Z"`
	Now     string `json:"now"      example:"2025-09-03T13:05:00Z"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"   example:"pg"`
	Status string `json:"status" example:"ok"` // ok fail skipped
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432 connect: connection refused"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2025-09-03T13:05:00Z"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string   `json:"name"    example:"archivist-api"`
	Started string   `json:"started" example:"2025-09-03T13:00:00Z"`
	Uptime  int64    `json:"uptime"  example:"300"`
	Modules []string `json:"modules"`
}

// MimeGroup is a configured MIME group and its pattern
type MimeGroup struct {
	Name    string `json:"name"    example:"HTML"`
	Pattern string `json:"pattern" example:"(text/html|application/xhtml\\+xml)"`
}

// PipelineResponse lists the algorithms and MIME groups a chain may name
type PipelineResponse struct {
	Algorithms []string          `json:"algorithms"`
	MimeGroups []MimeGroup       `json:"mime_groups"`
	Build      version.BuildInfo `json:"build"`
}

func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: stamp(h.deps.StartedAt),
		Now:     stamp(time.Now()),
	}, nil
}

func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	backends := []struct {
		name string
		p    Pinger
	}{{"pg", h.deps.PG}, {"ch", h.deps.CH}}

	out := ReadyResponse{Status: "ok", Checks: make([]ReadyCheck, len(backends))}
	var wg sync.WaitGroup
	for i, b := range backends {
		out.Checks[i] = ReadyCheck{Name: b.name, Status: "skipped"}
		if b.p == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.p.Ping(ctx); err != nil {
				out.Checks[i].Status, out.Checks[i].Error = "fail", err.Error()
				return
			}
			out.Checks[i].Status = "ok"
		}()
	}
	wg.Wait()

	for _, c := range out.Checks {
		if c.Status == "fail" {
			out.Status = "fail"
		}
	}
	out.Now = stamp(time.Now())
	return out, nil
}

func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(h.deps.ServiceName), nil
}

func (h *handlers) service(_ *http.Request) (any, error) {
	out := ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: stamp(h.deps.StartedAt),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
		Modules: []string{},
	}
	if h.deps.Modules != nil {
		out.Modules = h.deps.Modules()
	}
	return out, nil
}

func (h *handlers) pipeline(_ *http.Request) (any, error) {
	out := h.deps.Pipeline
	out.Build = version.Info(h.deps.ServiceName)
	return out, nil
}

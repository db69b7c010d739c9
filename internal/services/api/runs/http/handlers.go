// Package http provides http transport for run status reads
package http

import (
	stdhttp "net/http"

	"archivist/internal/modkit/httpkit"
	"archivist/internal/platform/net/http/bind"
	"archivist/internal/services/api/runs/domain"
	svc "archivist/internal/services/api/runs/service"

	"github.com/go-chi/chi/v5"
)

// Register mounts the status endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/runs", h.runs)
	httpkit.Get(r, "/runs/{id}", h.run)
	httpkit.Get(r, "/harvests/{id}", h.harvest)
	httpkit.Get(r, "/records/{key}", h.record)
	httpkit.Get(r, "/config/{key}/{column}/versions", h.configVersions)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /status/runs Runs runsList
// @Summary List processing runs by id prefix, newest first
// @Tags Runs
// @Produce json
// @Param prefix query string false "run id prefix"
// @Param status query string false "running, finished or failed"
// @Param limit query int false "max runs (1-500)"
// @Success 200 {array} domain.Run "ok"
// @Router /status/runs [get]
func (h *handlers) runs(r *stdhttp.Request) (any, error) {
	var q domain.RunsQuery
	if err := bind.Query(r, &q); err != nil {
		return nil, err
	}
	return h.svc.Runs(r.Context(), q)
}

// swagger:route GET /status/runs/{id} Runs runsGet
// @Summary One processing run
// @Tags Runs
// @Produce json
// @Param id path string true "run id"
// @Success 200 {object} domain.Run "ok"
// @Router /status/runs/{id} [get]
func (h *handlers) run(r *stdhttp.Request) (any, error) {
	return h.svc.Run(r.Context(), chi.URLParam(r, "id"))
}

// swagger:route GET /status/harvests/{id} Runs harvestsGet
// @Summary One registered harvest
// @Tags Runs
// @Produce json
// @Param id path string true "harvest id"
// @Success 200 {object} domain.Harvest "ok"
// @Router /status/harvests/{id} [get]
func (h *handlers) harvest(r *stdhttp.Request) (any, error) {
	return h.svc.Harvest(r.Context(), chi.URLParam(r, "id"))
}

// swagger:route GET /status/records/{key} Runs recordsGet
// @Summary One stored capture
// @Tags Runs
// @Produce json
// @Param key path string true "row key"
// @Success 200 {object} domain.Record "ok"
// @Router /status/records/{key} [get]
func (h *handlers) record(r *stdhttp.Request) (any, error) {
	return h.svc.Record(r.Context(), chi.URLParam(r, "key"))
}

// swagger:route GET /status/config/{key}/{column}/versions Runs configVersions
// @Summary Stored versions of a config cell
// @Tags Runs
// @Produce json
// @Param key path string true "config row"
// @Param column path string true "column qualifier"
// @Param n query int false "versions (1-100)"
// @Success 200 {array} domain.ConfigVersion "ok"
// @Router /status/config/{key}/{column}/versions [get]
func (h *handlers) configVersions(r *stdhttp.Request) (any, error) {
	var q domain.VersionsQuery
	if err := bind.Query(r, &q); err != nil {
		return nil, err
	}
	return h.svc.ConfigVersions(r.Context(), chi.URLParam(r, "key"), chi.URLParam(r, "column"), q)
}

// Package service contains the run status read workflows
package service

import (
	"context"
	"strings"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/net/http/bind"
	"archivist/internal/platform/store/kv"
	"archivist/internal/services/api/runs/domain"
	"archivist/internal/services/api/runs/repo"
	"archivist/internal/services/status"
)

const (
	defaultLimit    = 50
	defaultVersions = 10
)

// Service defines the service contract for run status reads
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo repo.Repo
}

// New creates a new status read service
func New(r repo.Repo) *Svc {
	if r == nil {
		panic("runs.Service requires a non nil Repo")
	}
	return &Svc{Repo: r}
}

// Run returns one run by id
func (s *Svc) Run(ctx context.Context, id string) (domain.Run, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Run{}, perr.Validationf("id", "run id is required")
	}
	r, ok := s.Repo.Run(ctx, id)
	if !ok {
		return domain.Run{}, perr.NotFoundf("run %s not found", id)
	}
	return toRun(r), nil
}

// Runs lists runs by id prefix, newest first
func (s *Svc) Runs(ctx context.Context, q domain.RunsQuery) ([]domain.Run, error) {
	if err := bind.Validate(q); err != nil {
		return nil, err
	}
	prefix := q.Prefix
	if prefix == "" {
		prefix = status.RunIDPrefix
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	out := make([]domain.Run, 0, limit)
	for _, r := range s.Repo.Runs(ctx, prefix) {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		out = append(out, toRun(r))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Harvest returns one harvest by id
func (s *Svc) Harvest(ctx context.Context, id string) (domain.Harvest, error) {
	h, ok := s.Repo.Harvest(ctx, id)
	if !ok {
		return domain.Harvest{}, perr.NotFoundf("harvest %s not found", id)
	}
	return domain.Harvest{ID: h.ID, Type: h.Type, Date: h.Date}, nil
}

// Record returns one stored capture by row key
func (s *Svc) Record(ctx context.Context, key string) (domain.Record, error) {
	rec, ok := s.Repo.Record(ctx, key)
	if !ok {
		return domain.Record{}, perr.NotFoundf("record %s not found", key)
	}
	return domain.Record{Key: key, Revisit: rec.IsRevisit(), Fields: rec.Fields()}, nil
}

// ConfigVersions returns stored versions of one config cell, newest first
func (s *Svc) ConfigVersions(ctx context.Context, key, column string, q domain.VersionsQuery) ([]domain.ConfigVersion, error) {
	if err := bind.Validate(q); err != nil {
		return nil, err
	}
	n := q.N
	if n == 0 {
		n = defaultVersions
	}
	cells := s.Repo.ConfigVersions(ctx, key, column, n)
	if len(cells) == 0 {
		return nil, perr.NotFoundf("config %s:%s not found", key, column)
	}
	out := make([]domain.ConfigVersion, 0, len(cells))
	for i, b := range cells {
		out = append(out, domain.ConfigVersion{Version: i, Value: kv.DecodeValue(b)})
	}
	return out, nil
}

func toRun(r status.Run) domain.Run {
	return domain.Run{
		ID:               r.ID,
		Status:           r.Status,
		TStarted:         r.TStarted,
		TFinished:        r.TFinished,
		CmdArgs:          r.CmdArgs,
		ApplicationID:    r.ApplicationID,
		RecordsProcessed: r.RecordsProcessed,
		RecordsFailed:    r.RecordsFailed,
		Harvests:         r.Harvests,
	}
}

// Package service implements the per-record pipeline: routing, the algorithm chain with
// validation and rollback, pruning and decomposition into output columns
package service

import (
	"context"
	"fmt"
	"strings"

	"archivist/internal/core/record"
	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"
	"archivist/internal/services/pipeline/domain"
)

// Config holds the per-run pipeline settings
type Config struct {
	Filters []domain.Filter
	// Unnecessary fields are removed before decomposition
	Unnecessary []string
	// SeparateCols are popped into their own columns in this order, "" when absent
	SeparateCols []string
	// ExtraMode emits [key] + extra instead of the column layout
	ExtraMode bool
	// AllowIDs restricts processing to these record ids; nil or empty allows all
	AllowIDs map[string]struct{}
}

// Service is the pipeline executor; it is safe for concurrent use once built
type Service struct {
	cfg     Config
	router  *Router
	schema  *record.Schema
	harvest domain.HarvestRegistrar
}

var _ domain.Processor = (*Service)(nil)

// New constructs the executor
func New(cfg Config, router *Router, schema *record.Schema) *Service {
	if router == nil {
		panic("pipeline.Service requires a router")
	}
	if schema == nil {
		panic("pipeline.Service requires a schema")
	}
	return &Service{cfg: cfg, router: router, schema: schema}
}

// WithHarvest returns a copy that registers harvests through reg; the copy belongs to one worker
func (s *Service) WithHarvest(reg domain.HarvestRegistrar) *Service {
	cp := *s
	cp.harvest = reg
	return &cp
}

// Process runs rec through the pipeline; it never panics and never returns an error
func (s *Service) Process(ctx context.Context, rec *record.Record) (row domain.Row, out domain.Outcome) {
	log := logger.C(ctx).With().
		Str("component", "pipeline").
		Str("id", rec.String(record.ID)).
		Str("url", rec.String(record.URL)).
		Logger()

	defer func() {
		if p := recover(); p != nil {
			err := perr.PanicErrf("pipeline panic: %v", p)
			log.Error().Err(err).Msg("record failed")
			row, out = nil, domain.Failed
		}
	}()

	if !s.allowed(rec) {
		log.Debug().Msg("record skipped: not in id allow-list")
		return nil, domain.Skipped
	}
	if f, ok := s.filteredBy(rec); ok {
		log.Debug().Str("field", f.Field).Str("pattern", f.Pattern.String()).Msg("record skipped by filter")
		return nil, domain.Skipped
	}
	if err := s.schema.Validate(rec); err != nil {
		log.Error().Err(err).Msg("record failed: invalid before processing")
		return nil, domain.Failed
	}
	if s.harvest != nil {
		if hid := rec.String(record.HarvestID); hid != "" {
			s.harvest.Register(ctx, hid, rec.String(record.WARCFilename))
		}
	}

	mime := rec.String(record.MIMEType)
	chain, ok := s.router.Resolve(mime)
	if !ok {
		log.Debug().Str("mime", mime).Msg("record skipped: no chain for mime type")
		return nil, domain.Skipped
	}
	steps := chain.Steps
	if rec.IsRevisit() {
		steps = nil
	}

	for _, alg := range steps {
		next, err := alg.Apply(ctx, rec.Clone())
		if err != nil {
			log.Error().Err(err).Str("algorithm", alg.Name()).Msg("algorithm failed, keeping previous state")
			continue
		}
		if next == nil {
			log.Error().Str("algorithm", alg.Name()).Msg("algorithm returned no record, keeping previous state")
			continue
		}
		if err := s.schema.Validate(next); err != nil {
			log.Error().Err(err).Str("algorithm", alg.Name()).Msg("algorithm produced an invalid record, keeping previous state")
			continue
		}
		rec = next
	}

	for _, f := range s.cfg.Unnecessary {
		rec.Delete(f)
	}
	row = s.decompose(rec)
	log.Info().
		Str("group", chain.Group).
		Int("steps", len(steps)).
		Str("row_key", row.Key()).
		Msg("record emitted")
	return row, domain.Emitted
}

func (s *Service) allowed(rec *record.Record) bool {
	if len(s.cfg.AllowIDs) == 0 {
		return true
	}
	id := rec.String(record.ID)
	if _, ok := s.cfg.AllowIDs[id]; ok {
		return true
	}
	_, ok := s.cfg.AllowIDs[RowKey(id)]
	return ok
}

func (s *Service) filteredBy(rec *record.Record) (domain.Filter, bool) {
	for _, f := range s.cfg.Filters {
		if !f.Pattern.MatchString(fieldText(rec.Get(f.Field))) {
			return f, true
		}
	}
	return domain.Filter{}, false
}

func fieldText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (s *Service) decompose(rec *record.Record) domain.Row {
	key := RowKey(rec.String(record.ID))
	if s.cfg.ExtraMode {
		return append(domain.Row{key}, rec.ExtraList()...)
	}
	row := make(domain.Row, 0, len(s.cfg.SeparateCols)+2)
	row = append(row, key)
	for _, c := range s.cfg.SeparateCols {
		row = append(row, rec.Pop(c, ""))
	}
	return append(row, rec.Fields())
}

// RowKey strips the urn:uuid: prefix from a record id
func RowKey(id string) string { return strings.TrimPrefix(id, "urn:uuid:") }

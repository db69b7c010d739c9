// Package domain holds the pipeline's shared types and ports
package domain

import (
	"context"
	"regexp"
	"strings"

	"archivist/internal/core/record"
	perr "archivist/internal/platform/errors"
)

// Outcome is the result class of processing one record
type Outcome int

const (
	// Emitted records produced an output row
	Emitted Outcome = iota
	// Skipped records were excluded on purpose (allow-list, filter, unmapped MIME)
	Skipped
	// Failed records were invalid or broke the executor
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Emitted:
		return "emitted"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Row is one output row: the row key first, then either the separate columns and the
// remainder map or the extra list items
type Row []any

// Key returns the row key, "" for an empty row
func (r Row) Key() string {
	if len(r) == 0 {
		return ""
	}
	s, _ := r[0].(string)
	return s
}

// MimeGroup names a MIME pattern; patterns match case-insensitively from the start
type MimeGroup struct {
	Name    string
	Pattern string
}

// DefaultMimeGroups in routing order
func DefaultMimeGroups() []MimeGroup {
	return []MimeGroup{
		{Name: "HTML", Pattern: `(text/html|application/xhtml\+xml)`},
		{Name: "PDF", Pattern: `application/pdf`},
		{Name: "IMG", Pattern: `image/.*`},
	}
}

// ChainSpec binds an ordered list of algorithm names to a MIME group
type ChainSpec struct {
	Group      string
	Algorithms []string
}

// ParseChainSpec parses "GROUP:alg1,alg2"; an empty algorithm list is allowed
func ParseChainSpec(s string) (ChainSpec, error) {
	group, algs, ok := strings.Cut(s, ":")
	group = strings.TrimSpace(group)
	if !ok || group == "" {
		return ChainSpec{}, perr.InvalidArgf("algorithm sequence %q must look like GROUP:alg1,alg2", s)
	}
	spec := ChainSpec{Group: group}
	for _, a := range strings.Split(algs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			spec.Algorithms = append(spec.Algorithms, a)
		}
	}
	return spec, nil
}

// Filter keeps records whose field matches Pattern from the start of the value
type Filter struct {
	Field   string
	Pattern *regexp.Regexp
}

// ParseFilters parses "field=regex" pairs separated by ';'
func ParseFilters(s string) ([]Filter, error) {
	var out []Filter
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, expr, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, perr.InvalidArgf("filter %q must look like field=regex", part)
		}
		re, err := regexp.Compile(`^(?:` + expr + `)`)
		if err != nil {
			return nil, perr.InvalidArgf("filter %q: %v", part, err)
		}
		out = append(out, Filter{Field: strings.TrimSpace(field), Pattern: re})
	}
	return out, nil
}

// HarvestRegistrar records the harvest of a record the first time it is seen
// warcFilename carries the harvest type and date
type HarvestRegistrar interface {
	Register(ctx context.Context, harvestID, warcFilename string)
}

// Processor turns one record into an output row
type Processor interface {
	Process(ctx context.Context, rec *record.Record) (Row, Outcome)
}

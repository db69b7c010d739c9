// Package algorithms holds the enrichment steps a pipeline chain applies to a record
// Every step receives its own copy of the record and returns the copy it wants kept
package algorithms

import (
	"context"
	"sort"
	"strconv"

	"archivist/internal/core/record"
	perr "archivist/internal/platform/errors"

	"github.com/rs/zerolog"
)

// Algorithm is one enrichment step
type Algorithm interface {
	Name() string
	Configure(p Params) error
	Apply(ctx context.Context, r *record.Record) (*record.Record, error)
}

// Factory builds an unconfigured algorithm
type Factory func() Algorithm

// Params carries per-algorithm settings; values come from env or JSON so numbers may be strings
type Params map[string]any

// Float returns key as float64 or def when absent
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, perr.Validationf(key, "param %s: %q is not a number", key, x)
		}
		return f, nil
	}
	return 0, perr.Validationf(key, "param %s: unsupported type %T", key, v)
}

// Int returns key as int or def when absent
func (p Params) Int(key string, def int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, perr.Validationf(key, "param %s: %v is not an integer", key, f)
	}
	return int(f), nil
}

// Registry maps algorithm names to factories
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry { return &Registry{factories: map[string]Factory{}} }

// Register adds or replaces a factory
func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// Names lists registered algorithm names in sorted order
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New builds and configures the named algorithm
func (r *Registry) New(name string, p Params) (Algorithm, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, perr.InvalidArgf("unknown algorithm %q", name)
	}
	a := f()
	if err := a.Configure(p); err != nil {
		return nil, perr.Wrapf(err, perr.CodeOf(err), "configure %s", name)
	}
	return a, nil
}

// Builtins returns a registry with every algorithm shipped in this package
func Builtins() *Registry {
	r := NewRegistry()
	r.Register(NoopName, func() Algorithm { return Noop{} })
	r.Register(HTMLTextExtractorName, func() Algorithm { return &HTMLTextExtractor{} })
	r.Register(LanguageIdentifierName, func() Algorithm { return &LanguageIdentifier{} })
	r.Register(WordTokenizerName, func() Algorithm { return &WordTokenizer{} })
	r.Register(SentenceTokenizerName, func() Algorithm { return &SentenceTokenizer{} })
	r.Register(FleschReadingEaseName, func() Algorithm { return &FleschReadingEase{} })
	r.Register(WebPageTypeIdentifierName, func() Algorithm { return &WebPageTypeIdentifier{} })
	return r
}

// tag adds the record context every algorithm log line carries
func tag(e *zerolog.Event, name string, r *record.Record) *zerolog.Event {
	return e.Str("algorithm", name).Str("url", r.String(record.URL)).Str("id", r.String(record.ID))
}

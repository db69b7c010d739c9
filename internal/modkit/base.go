package modkit

import (
	"net/http"

	phttp "archivist/internal/platform/net/http"
	str "archivist/internal/platform/strings"
)

// Option adjusts a module's Base
type Option func(*Base)

// WithPrefix mounts the module under prefix instead of its default
func WithPrefix(prefix string) Option {
	return func(b *Base) { b.prefix = prefix }
}

// WithMiddlewares appends per module middleware, outermost first
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Base) { b.mws = append(b.mws, mw...) }
}

// Base is embedded by API modules: a name, a route prefix and the module's own middleware
type Base struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler
}

// NewBase applies opts then validates the name and normalizes the prefix; bad values panic at wiring time
func NewBase(name, prefix string, opts ...Option) Base {
	b := Base{name: name, prefix: prefix}
	for _, o := range opts {
		o(&b)
	}
	str.MustString(b.name, "module name")
	b.prefix = str.MustPrefix(b.prefix)
	return b
}

// Name returns the module name
func (b Base) Name() string { return b.name }

// Prefix returns the route prefix
func (b Base) Prefix() string { return b.prefix }

// Mount routes the prefix to a subrouter carrying the module middleware and lets register fill it
func (b Base) Mount(r phttp.Router, register func(phttp.Router)) {
	r.Route(b.prefix, func(sub phttp.Router) {
		if len(b.mws) > 0 {
			sub.Use(b.mws...)
		}
		register(sub)
	})
}

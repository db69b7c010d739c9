package service

import (
	"regexp"
	"sync"

	"archivist/internal/core/algorithms"
	perr "archivist/internal/platform/errors"
	"archivist/internal/services/pipeline/domain"
)

// Matcher tests a MIME string against one group pattern
type Matcher interface {
	MatchString(s string) bool
}

// Compiler builds the matcher for a group pattern
type Compiler func(pattern string) (Matcher, error)

// CompileMIME anchors pattern at the start and ignores case
func CompileMIME(pattern string) (Matcher, error) {
	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)`)
	if err != nil {
		return nil, perr.InvalidArgf("mime pattern %q: %v", pattern, err)
	}
	return re, nil
}

// Chain is the ordered algorithm list bound to one MIME group
type Chain struct {
	Group string
	Steps []algorithms.Algorithm
}

type routedGroup struct {
	name  string
	match Matcher
	chain Chain
}

type resolved struct {
	chain Chain
	ok    bool
}

// Router maps MIME strings to algorithm chains
// resolutions, misses included, are memoized per literal MIME string for the router's lifetime
type Router struct {
	groups  []domain.MimeGroup
	reg     *algorithms.Registry
	compile Compiler

	routes []routedGroup

	mu    sync.RWMutex
	cache map[string]resolved
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithCompiler replaces the MIME pattern compiler
func WithCompiler(c Compiler) RouterOption { return func(r *Router) { r.compile = c } }

// NewRouter returns an unconfigured router over the given groups
func NewRouter(groups []domain.MimeGroup, reg *algorithms.Registry, opts ...RouterOption) *Router {
	r := &Router{groups: groups, reg: reg, compile: CompileMIME, cache: map[string]resolved{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Configure builds one instance per distinct algorithm name and binds chains to groups
// routes follow the order of specs; a repeated group keeps its first chain
// params are keyed by algorithm name; a construction error leaves the router unusable
func (r *Router) Configure(specs []domain.ChainSpec, params map[string]algorithms.Params) error {
	patterns := map[string]string{}
	for _, g := range r.groups {
		patterns[g.Name] = g.Pattern
	}

	instances := map[string]algorithms.Algorithm{}
	routes := make([]routedGroup, 0, len(specs))
	bound := map[string]bool{}
	for _, spec := range specs {
		pattern, known := patterns[spec.Group]
		if !known {
			return perr.InvalidArgf("unknown mime group %q", spec.Group)
		}
		if bound[spec.Group] {
			continue
		}
		ch := Chain{Group: spec.Group}
		for _, name := range spec.Algorithms {
			alg, ok := instances[name]
			if !ok {
				var err error
				if alg, err = r.reg.New(name, params[name]); err != nil {
					return err
				}
				instances[name] = alg
			}
			ch.Steps = append(ch.Steps, alg)
		}
		m, err := r.compile(pattern)
		if err != nil {
			return err
		}
		bound[spec.Group] = true
		routes = append(routes, routedGroup{name: spec.Group, match: m, chain: ch})
	}

	r.mu.Lock()
	r.routes = routes
	r.cache = map[string]resolved{}
	r.mu.Unlock()
	return nil
}

// Resolve returns the chain of the first declared group whose pattern matches mime
func (r *Router) Resolve(mime string) (Chain, bool) {
	r.mu.RLock()
	hit, ok := r.cache[mime]
	r.mu.RUnlock()
	if ok {
		return hit.chain, hit.ok
	}

	var res resolved
	for _, g := range r.routes {
		if g.match.MatchString(mime) {
			res = resolved{chain: g.chain, ok: true}
			break
		}
	}

	r.mu.Lock()
	r.cache[mime] = res
	r.mu.Unlock()
	return res.chain, res.ok
}

// Groups lists the configured group names in routing order
func (r *Router) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.routes))
	for i, g := range r.routes {
		out[i] = g.name
	}
	return out
}

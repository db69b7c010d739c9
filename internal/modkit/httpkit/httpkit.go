// Package httpkit is what API modules use to register endpoints, so they never import chi
package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	phttp "archivist/internal/platform/net/http"
	"archivist/internal/platform/net/middleware"
)

// Router is the platform router seam
type Router = phttp.Router

// Get mounts a read endpoint; the handler's value becomes the envelope data and its error the status
func Get(r Router, path string, fn func(*http.Request) (any, error)) {
	r.Get(path, phttp.Handle(func(req *http.Request) phttp.Response {
		out, err := fn(req)
		if err != nil {
			return phttp.Error(err)
		}
		return phttp.OK(out)
	}))
}

// CommonStack is the middleware every versioned API route runs through, outermost first
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLog(500 * time.Millisecond),
		middleware.Recover,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.Timeout(30 * time.Second),
	}
}

// MountAPIV1 scopes mount under /api/v1 with mw applied
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route("/api/v1", func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}

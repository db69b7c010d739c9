// Package middleware wraps chi and go-chi/cors middleware for the status API without leaking chi types
package middleware

import (
	"net/http"
	"time"

	pstrings "archivist/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Middleware is a standard net/http middleware
type Middleware = func(http.Handler) http.Handler

// RequestID attaches or propagates X-Request-Id and stores it on context
func RequestID() Middleware { return chimw.RequestID }

// RealIP sets RemoteAddr from X-Forwarded-For / X-Real-IP
func RealIP() Middleware { return chimw.RealIP }

// NoCache marks every response uncacheable; run status changes under the reader
func NoCache() Middleware { return chimw.NoCache }

// Timeout cancels the request context after d
func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

// StripSlashes serves /runs/ as /runs
func StripSlashes() Middleware { return chimw.StripSlashes }

// Heartbeat answers GET path with 200 before routing
func Heartbeat(path string) Middleware { return chimw.Heartbeat(path) }

// Compress compresses JSON responses at level
func Compress(level int) Middleware {
	c := chimw.NewCompressor(level, "application/json", "text/html", "text/plain")
	return c.Handler
}

// CORSOptions is the narrow surface of go-chi/cors the API exposes
type CORSOptions struct {
	AllowedOrigins []string
	AllowedHeaders []string
	MaxAge         int
}

// CORS allows cross-origin reads; the API has no write verbs
func CORS(o CORSOptions) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: pstrings.IfEmpty(o.AllowedOrigins, []string{"*"}),
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: pstrings.IfEmpty(o.AllowedHeaders, []string{"Accept", "X-Request-Id"}),
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         o.MaxAge,
	})
}

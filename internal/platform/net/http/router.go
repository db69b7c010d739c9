package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler is the platform handler type
type Handler = http.HandlerFunc

// Router is the routing seam modules mount against; the API only serves reads
type Router interface {
	Get(pattern string, h Handler)
	Handle(pattern string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Route(pattern string, fn func(Router))
}

type chiRouter struct{ r chi.Router }

// AdaptChi exposes a chi router through the Router seam
func AdaptChi(r chi.Router) Router { return chiRouter{r: r} }

func (c chiRouter) Get(p string, h Handler)                   { c.r.Get(p, h) }
func (c chiRouter) Handle(p string, h http.Handler)           { c.r.Handle(p, h) }
func (c chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.r.Use(mw...) }

func (c chiRouter) Route(p string, fn func(Router)) {
	c.r.Route(p, func(sub chi.Router) { fn(chiRouter{r: sub}) })
}

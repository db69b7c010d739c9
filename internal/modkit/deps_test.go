package modkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "archivist/internal/platform/net/http"
	"archivist/internal/platform/store/kv"
	"archivist/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func TestDepsHasKV(t *testing.T) {
	t.Parallel()
	if (Deps{}).HasKV() {
		t.Fatal("zero Deps has no kv dialer")
	}
	d := Deps{KV: func(context.Context) (kv.Conn, error) { return nil, nil }}
	if !d.HasKV() {
		t.Fatal("wired dialer not reported")
	}
}

func TestBaseMountsUnderPrefixWithMiddleware(t *testing.T) {
	t.Parallel()
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Module", "runs")
			next.ServeHTTP(w, r)
		})
	}
	b := NewBase("runs", "/status", WithMiddlewares(tag))
	if b.Name() != "runs" || b.Prefix() != "/status" {
		t.Fatalf("base = %+v", b)
	}

	mux := chi.NewRouter()
	b.Mount(phttp.AdaptChi(mux), func(r phttp.Router) {
		r.Get("/runs", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/runs", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("X-Module") != "runs" {
		t.Fatalf("status %d headers %v", rec.Code, rec.Header())
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("route leaked outside prefix: %d", rec.Code)
	}
}

func TestNewBaseRejectsBadWiring(t *testing.T) {
	t.Parallel()
	testkit.MustPanic(t, func() { NewBase("", "/meta") })
	testkit.MustPanic(t, func() { NewBase("meta", "/") })
	if got := NewBase("meta", "meta/").Prefix(); got != "/meta" {
		t.Fatalf("prefix = %q", got)
	}
	if got := NewBase("meta", "/meta", WithPrefix("/about")).Prefix(); got != "/about" {
		t.Fatalf("prefix = %q", got)
	}
}

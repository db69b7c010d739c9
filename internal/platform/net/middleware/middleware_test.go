package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"archivist/internal/platform/logger"
	pnet "archivist/internal/platform/net"
	"archivist/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	testkit.Serial(t)
	var buf bytes.Buffer
	saved := *logger.Get()
	*logger.Get() = zerolog.New(&buf)
	t.Cleanup(func() { *logger.Get() = saved })
	return &buf
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	buf := captureLogs(t)
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.C(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("brew"))
	}), RequestID(), AccessLog(0))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/runs", nil)
	req.Header.Set("X-Request-Id", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 log lines, got %q", buf.String())
	}
	var access map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &access); err != nil {
		t.Fatal(err)
	}
	if access["request_id"] != "req-42" || access["status"] != float64(http.StatusTeapot) || access["bytes"] != float64(4) {
		t.Fatalf("access line = %v", access)
	}
	testkit.MustContain(t, lines[0], `"request_id":"req-42"`)
}

func TestAccessLogLevels(t *testing.T) {
	buf := captureLogs(t)
	slow := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
	}), AccessLog(time.Millisecond))
	slow.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	testkit.MustContain(t, buf.String(), `"level":"warn"`)

	buf.Reset()
	failing := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), AccessLog(0))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	testkit.MustContain(t, buf.String(), `"level":"error"`)
}

func TestRecoverWritesEnvelope(t *testing.T) {
	buf := captureLogs(t)
	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID(), AccessLog(0), Recover)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/runs", nil)
	req.Header.Set("X-Request-Id", "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var env pnet.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.RequestID != "req-7" || env.Error == "" {
		t.Fatalf("envelope = %+v", env)
	}
	testkit.MustContain(t, buf.String(), "handler panicked")
}

func TestStackPieces(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":"` + strings.Repeat("x", 2048) + `"}`))
	})
	h := chain(ok, CORS(CORSOptions{}), Compress(5), Heartbeat("/health"), NoCache(), StripSlashes())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("heartbeat = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Origin", "https://example.org")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("json not compressed: %v", rec.Header())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("cors headers = %v", rec.Header())
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Fatal("no-cache headers missing")
	}

	pre := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	pre.Header.Set("Origin", "https://example.org")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	if rec.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Fatalf("POST preflight allowed: %v", rec.Header())
	}
}

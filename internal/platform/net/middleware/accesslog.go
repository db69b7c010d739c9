package middleware

import (
	"net/http"
	"time"

	"archivist/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLog binds the request id to the logger context and logs one line per request
// requests slower than slow log at warn; slow 0 never warns
func AccessLog(slow time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), chimw.GetReqID(r.Context()))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			elapsed := time.Since(start)
			log := logger.C(ctx)
			ev := log.Info()
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				ev = log.Error()
			case slow > 0 && elapsed >= slow:
				ev = log.Warn()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Msg("request")
		})
	}
}

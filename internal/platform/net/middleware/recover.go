package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"
	pnet "archivist/internal/platform/net"
)

// Recover turns a handler panic into a logged 500 envelope
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			reqID := pnet.RequestID(r.Context())
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")

			status, env := pnet.Failure(perr.PanicErrf("internal error"), reqID)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(env)
		}()
		next.ServeHTTP(w, r)
	})
}

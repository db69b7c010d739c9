// Package http is the status API transport: a chi router seam, the JSON envelope and the server
package http

import (
	"encoding/json"
	"net/http"

	pnet "archivist/internal/platform/net"
)

// Response is what a return-style handler produces
type Response struct {
	Status int
	Data   any
	Err    error
}

// OK is a 200 response carrying data
func OK(data any) Response { return Response{Status: http.StatusOK, Data: data} }

// Error is a response whose status follows the error code
func Error(err error) Response { return Response{Err: err} }

// Handle adapts a return-style handler to net/http, wrapping the result in the envelope
func Handle(fn func(*http.Request) Response) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(r).write(w, r)
	}
}

func (resp Response) write(w http.ResponseWriter, r *http.Request) {
	reqID := pnet.RequestID(r.Context())
	if resp.Err != nil {
		status, env := pnet.Failure(resp.Err, reqID)
		JSON(w, status, env)
		return
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	env := pnet.Success(resp.Data, reqID)
	env.StatusCode, env.Status = status, http.StatusText(status)
	JSON(w, status, env)
}

// JSON writes v with status as application/json
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

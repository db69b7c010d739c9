package net

import (
	"net/http"

	perr "archivist/internal/platform/errors"
)

// Envelope is the body of every status API response
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Success wraps data in a 200 envelope
func Success(data any, reqID string) Envelope {
	return Envelope{
		StatusCode: http.StatusOK,
		Status:     http.StatusText(http.StatusOK),
		RequestID:  reqID,
		Data:       data,
	}
}

// Failure maps err to its HTTP status and error envelope; a nil err is a success
func Failure(err error, reqID string) (int, Envelope) {
	if err == nil {
		return http.StatusOK, Success(nil, reqID)
	}
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Error:      w.Message,
		RequestID:  reqID,
	}
}

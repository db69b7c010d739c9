// Package errors is the project error type: a machine code, a message, an optional field and the cause
//
// Import it as perr
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error for logs, retries and the API envelope
type ErrorCode uint16

// Codes appear on the wire; append only
const (
	ErrorCodeUnknown ErrorCode = iota
	// ErrorCodePanic is a recovered panic
	ErrorCodePanic
	// ErrorCodeUnavailable is a backend that may answer on a later attempt
	ErrorCodeUnavailable
	// ErrorCodeInvalidArgument is a bad flag, option or wiring
	ErrorCodeInvalidArgument
	// ErrorCodeValidation is input that breaks a declared rule; Field names the input
	ErrorCodeValidation
	// ErrorCodeJSON is malformed JSON
	ErrorCodeJSON
	ErrorCodeNotFound
	// ErrorCodeConflict is a concurrent change to the same object
	ErrorCodeConflict
	ErrorCodeDB
	// ErrorCodeDecode is undecodable content: WARC payloads, stored cells, text encodings
	ErrorCodeDecode
	// ErrorCodeStorage is a key-value write that failed after its retries
	ErrorCodeStorage
)

var codeInfo = map[ErrorCode]struct {
	name   string
	status int
}{
	ErrorCodeUnknown:         {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:           {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:     {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeInvalidArgument: {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:      {"validation", http.StatusBadRequest},
	ErrorCodeJSON:            {"json", http.StatusBadRequest},
	ErrorCodeNotFound:        {"not_found", http.StatusNotFound},
	ErrorCodeConflict:        {"conflict", http.StatusConflict},
	ErrorCodeDB:              {"db", http.StatusInternalServerError},
	ErrorCodeDecode:          {"decode", http.StatusUnprocessableEntity},
	ErrorCodeStorage:         {"storage", http.StatusBadGateway},
}

// String is the code's log name
func (c ErrorCode) String() string {
	if i, ok := codeInfo[c]; ok {
		return i.name
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// HTTPStatusCode is the response status for c; unknown codes are 500
func HTTPStatusCode(c ErrorCode) int {
	if i, ok := codeInfo[c]; ok {
		return i.status
	}
	return http.StatusInternalServerError
}

// Error carries a code and message around an optional cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

// Wire is the client-facing part of an error
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return e.msg + ": " + e.orig.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field names the offending input, if any
func (e *Error) Field() string { return e.field }

// WireFrom is the client-facing form of err; the cause stays out of the message
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return Wire{Code: e.code, Message: e.msg, Field: e.field}
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root is the innermost cause of err
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			break
		}
		err = u
	}
	return err
}

// As finds the outermost *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf is the code of the outermost *Error, or ErrorCodeUnknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return err != nil && CodeOf(err) == code }

// HTTPStatus is the response status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// New returns an error with code and msg
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns an error with code and a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns an error with code and msg caused by orig
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf is Wrap with a formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf is Wrap for a possibly nil err
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Shorthands for Newf with a fixed code
func NotFoundf(format string, a ...any) error    { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error  { return Newf(ErrorCodeInvalidArgument, format, a...) }
func JSONErrf(format string, a ...any) error     { return Newf(ErrorCodeJSON, format, a...) }
func PanicErrf(format string, a ...any) error    { return Newf(ErrorCodePanic, format, a...) }
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }
func Decodef(format string, a ...any) error      { return Newf(ErrorCodeDecode, format, a...) }

// Validationf returns a validation error for field
func Validationf(field, format string, a ...any) error {
	return &Error{code: ErrorCodeValidation, msg: fmt.Sprintf(format, a...), field: field}
}

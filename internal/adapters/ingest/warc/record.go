package warc

import (
	"io"
	"strings"
)

// Record types the pipeline cares about
const (
	TypeResponse = "response"
	TypeRevisit  = "revisit"
	TypeRequest  = "request"
	TypeWarcinfo = "warcinfo"
)

// Record is one WARC record; Block is valid until the next call to Reader.Next
type Record struct {
	Version       string
	Type          string
	ContentLength int64
	// Headers keep the header names as written in the container
	Headers map[string]string
	Block   io.Reader
}

// Header returns a header value case-insensitively, "" when absent
func (r *Record) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// IsHTTP reports whether the block carries an HTTP message
func (r *Record) IsHTTP() bool {
	return strings.HasPrefix(strings.ToLower(r.Header("Content-Type")), "application/http")
}

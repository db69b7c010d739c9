package record

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// EncodeContent renders raw payload bytes as the stored content text
func EncodeContent(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// ContentText returns the stored base64 text, "" when absent
func (r *Record) ContentText() string { return r.String(Content) }

// ContentBytes returns the payload with any HTTP Content-Encoding removed
// unknown encodings and undecodable payloads come back as the raw bytes
func (r *Record) ContentBytes() []byte {
	if r.decDone {
		return r.decoded
	}
	raw, err := base64.StdEncoding.DecodeString(r.ContentText())
	if err != nil {
		raw = nil
	}
	r.decoded = decodeBody(raw, r.HTTPHeader("Content-Encoding"))
	r.decDone = true
	return r.decoded
}

// HTTPHeader returns a response header value, case-insensitively
func (r *Record) HTTPHeader(name string) string { return headerValue(r.fields[HTTPHeaders], name) }

// RecHeader returns a capture record header value, case-insensitively
func (r *Record) RecHeader(name string) string { return headerValue(r.fields[RecHeaders], name) }

func headerValue(h any, name string) string {
	switch m := h.(type) {
	case map[string]string:
		for k, v := range m {
			if strings.EqualFold(k, name) {
				return v
			}
		}
	case map[string]any:
		for k, v := range m {
			if strings.EqualFold(k, name) {
				s, _ := v.(string)
				return s
			}
		}
	}
	return ""
}

func decodeBody(raw []byte, encoding string) []byte {
	if len(raw) == 0 {
		return raw
	}
	var (
		out []byte
		err error
	)
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		out, err = gunzip(raw)
	case "deflate":
		out, err = inflate(raw)
	case "br":
		out, err = io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	default:
		return raw
	}
	if err != nil {
		return raw
	}
	return out
}

func gunzip(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	return io.ReadAll(zr)
}

// inflate accepts both zlib-wrapped and raw deflate streams; servers send either
func inflate(raw []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		out, rerr := io.ReadAll(zr)
		_ = zr.Close()
		if rerr == nil {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(raw))
	defer func() { _ = fr.Close() }()
	return io.ReadAll(fr)
}

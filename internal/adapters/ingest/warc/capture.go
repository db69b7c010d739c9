package warc

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"archivist/internal/core/record"
	perr "archivist/internal/platform/errors"
)

// ToCapture reads the record block and splits an embedded HTTP message into status,
// headers and payload. Blocks that are not HTTP, or fail to parse as HTTP, become the payload as is
func ToCapture(rec *Record, source string) (record.Capture, error) {
	block, err := io.ReadAll(rec.Block)
	if err != nil {
		return record.Capture{}, perr.Wrap(err, perr.ErrorCodeDecode, "warc: read block")
	}
	c := record.Capture{
		Type:    rec.Type,
		Headers: rec.Headers,
		Payload: block,
		Source:  source,
	}
	if !rec.IsHTTP() || len(block) == 0 {
		return c, nil
	}
	status, hdrs, payload, ok := parseHTTP(block)
	if ok {
		c.HTTPStatus, c.HTTPHeaders, c.Payload = status, hdrs, payload
	}
	return c, nil
}

// parseHTTP parses an archived HTTP response; chunked bodies come back de-chunked,
// content codings are left alone
func parseHTTP(block []byte) (int, map[string]string, []byte, bool) {
	if !bytes.HasPrefix(block, []byte("HTTP/")) {
		return 0, nil, nil, false
	}
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(block)), nil)
	if err != nil {
		return 0, nil, nil, false
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, nil, nil, false
	}
	hdrs := make(map[string]string, len(resp.Header))
	for k, vs := range resp.Header {
		hdrs[k] = strings.Join(vs, ", ")
	}
	return resp.StatusCode, hdrs, payload, true
}

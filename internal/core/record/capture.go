package record

import (
	"mime"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Capture is one raw archived capture as read from a container
type Capture struct {
	// Type is the capture record type (response, revisit, request ...)
	Type string
	// Headers are the capture record headers in container order of appearance
	Headers map[string]string
	// HTTPStatus is 0 when the block carried no HTTP message
	HTTPStatus  int
	HTTPHeaders map[string]string
	Payload     []byte
	// Source is the container URI or file name the capture came from
	Source string
}

// header returns a capture header case-insensitively
func (c Capture) header(name string) (string, bool) {
	for k, v := range c.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// FromCapture builds the canonical record for a capture
func FromCapture(c Capture) *Record {
	r := New(nil)
	r.revisit = strings.EqualFold(c.Type, "revisit")

	for hdr, field := range warcHeaderFields {
		if v, ok := c.header(hdr); ok {
			r.fields[field] = v
		}
	}
	if id := stripAngles(r.String(ID)); id != "" {
		r.fields[ID] = id
	} else {
		r.fields[ID] = "urn:uuid:" + uuid.NewString()
	}
	if ref, ok := r.fields[RefersTo].(string); ok {
		r.fields[RefersTo] = stripAngles(ref)
	}
	if u := r.String(URL); u != "" {
		r.fields[URL] = stripAngles(u)
		r.fields[URLKey] = SURT(r.String(URL))
	}

	r.fields[RecHeaders] = cloneHeaders(c.Headers)
	r.fields[HTTPHeaders] = cloneHeaders(c.HTTPHeaders)
	if c.HTTPStatus > 0 {
		r.fields[ResponseCode] = strconv.Itoa(c.HTTPStatus)
	}
	if ct := headerValue(c.HTTPHeaders, "Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			r.fields[MIMEType] = mt
		} else {
			r.fields[MIMEType] = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
		}
	}
	if loc := headerValue(c.HTTPHeaders, "Location"); loc != "" {
		r.fields[RedirectURL] = loc
	}

	if c.Source != "" {
		name := path.Base(c.Source)
		r.fields[WARCFilename] = name
		if hi, ok := ParseHarvestInfo(name); ok {
			r.fields[HarvestID] = hi.Name
		}
	}

	r.fields[Content] = EncodeContent(c.Payload)
	r.NormalizeInts()
	return r
}

func stripAngles(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "<"), ">")
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

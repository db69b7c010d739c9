package normalize

import (
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const fallbackCharset = "windows-1252"

// minConfidence is the chardet score below which the prescan guess is kept
const minConfidence = 30

// DecodeHTML converts an HTML body to UTF-8 and reports the charset it used
// BOM, the Content-Type header and a meta tag are trusted in that order.
// Without any of them the bytes are sniffed with chardet
func DecodeHTML(body []byte, contentType string) (string, string) {
	if len(body) == 0 {
		return "", "utf-8"
	}
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	// an unlabeled non UTF-8 page lands on the windows-1252 default
	if !certain && name == fallbackCharset {
		if e, n, ok := sniff(body); ok {
			enc, name = e, n
		}
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), ""), "utf-8"
	}
	return strings.TrimPrefix(string(out), "\uFEFF"), name
}

func sniff(body []byte) (encoding.Encoding, string, bool) {
	res, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || res == nil || res.Confidence < minConfidence {
		return nil, "", false
	}
	enc, err := htmlindex.Get(res.Charset)
	if err != nil {
		return nil, "", false
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = strings.ToLower(res.Charset)
	}
	return enc, name, true
}

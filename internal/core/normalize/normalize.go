// Package normalize prepares extracted page text for the enrichment algorithms
// Fold pipeline order
// 1 UTF-8 repair drop invalid bytes and control characters
// 2 Unicode NFKC normalization
// 3 Case folding
// 4 Remove zero-width format characters and stray combining marks
// 5 Width fold fullwidth to ASCII
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalizer is concurrency safe when used with the pool below
type Normalizer struct{}

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)), // NFKC composed what it could, the rest is noise
			runes.Remove(runes.In(unicode.Cf)), // ZWJ ZWNJ FEFF etc
			width.Fold,
		)
	},
}

// New constructs a Normalizer
func New() *Normalizer { return &Normalizer{} }

// Fold returns the comparison form of a token or phrase
// stopword lists and page words must both go through Fold before matching
func (n *Normalizer) Fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(Sanitize(s), "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return strings.TrimSpace(ns)
}

// Text cleans extracted text for storage: control characters are dropped,
// whitespace runs collapse to one space, runs containing a line break collapse to one newline
func Text(s string) string {
	return collapseSpaces(strings.ToValidUTF8(Sanitize(s), ""))
}

// collapseSpaces converts whitespace runs to a single ASCII space, but preserves line breaks.
// Runs that contain any newline are collapsed to a single newline. Leading/trailing spaces/newlines are trimmed
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	sawNL := false
	flush := func() {
		if !inWS {
			return
		}
		if sawNL {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inWS = false
		sawNL = false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			if r == '\n' || r == '\r' {
				sawNL = true
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return strings.Trim(b.String(), " \n\t\r")
}

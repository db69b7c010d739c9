package algorithms

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"archivist/internal/core/normalize"
	"archivist/internal/core/record"
	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLTextExtractorName is the registry name of HTMLTextExtractor
const HTMLTextExtractorName = "HTMLTextExtractor"

// DefaultMaxHTMLSize is the largest decoded body the extractor will parse
const DefaultMaxHTMLSize = 20000000

// paragraphRules classify text blocks into boilerplate and content
type paragraphRules struct {
	lengthLow      int
	lengthHigh     int
	stopwordsLow   float64
	stopwordsHigh  float64
	maxLinkDensity float64
	maxGoodDist    int
}

// HTMLTextExtractor pulls title, headlines, links, language and plain text out of an HTML body
type HTMLTextExtractor struct {
	stop      *Stoplists
	maxSize   int
	base      paragraphRules
	fallbacks []paragraphRules
}

func (*HTMLTextExtractor) Name() string { return HTMLTextExtractorName }

// Configure reads max_size and the paragraph thresholds
func (h *HTMLTextExtractor) Configure(p Params) error {
	stop, err := LoadStoplists()
	if err != nil {
		return err
	}
	h.stop = stop
	if h.maxSize, err = p.Int("max_size", DefaultMaxHTMLSize); err != nil {
		return err
	}
	b := paragraphRules{}
	if b.lengthLow, err = p.Int("length_low", 70); err != nil {
		return err
	}
	if b.lengthHigh, err = p.Int("length_high", 140); err != nil {
		return err
	}
	if b.stopwordsLow, err = p.Float("stopwords_low", 0.2); err != nil {
		return err
	}
	if b.stopwordsHigh, err = p.Float("stopwords_high", 0.3); err != nil {
		return err
	}
	if b.maxLinkDensity, err = p.Float("max_link_density", 0.4); err != nil {
		return err
	}
	if b.maxGoodDist, err = p.Int("max_good_distance", 5); err != nil {
		return err
	}
	h.base = b

	// whole paragraphs may be links, then good paragraphs may sit far apart
	linky, far := b, b
	linky.maxLinkDensity = 1
	far.maxGoodDist = 20
	h.fallbacks = []paragraphRules{linky, far}
	return nil
}

func (h *HTMLTextExtractor) Apply(ctx context.Context, r *record.Record) (*record.Record, error) {
	log := logger.C(ctx)
	body := r.ContentBytes()
	if len(bytes.TrimSpace(body)) == 0 {
		tag(log.Debug(), HTMLTextExtractorName, r).Msg("no html")
		return r, nil
	}
	if len(body) > h.maxSize {
		tag(log.Warn(), HTMLTextExtractorName, r).Int("bytes", len(body)).Msg("html too large, skipping")
		return r, nil
	}

	text, cs := normalize.DecodeHTML(body, r.HTTPHeader("Content-Type"))
	if n := strings.Count(text, "\uFFFD"); n > 0 {
		tag(log.Warn(), HTMLTextExtractorName, r).Int("errors", n).Str("charset", cs).Msg("decode errors in html")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDecode, "parse html")
	}
	doc.Find("script, style, noscript, template").Remove()

	words := h.stop.Words(doc.Find("body").Text())
	if lang, _, ok := h.stop.Guess(words, defaultMinRatio, defaultMinCount); ok {
		r.Set(record.Language, lang)
	}
	if t := doc.Find("title").First(); t.Length() > 0 {
		r.Set(record.Title, squash(t.Text()))
	}
	r.Set(record.Headlines, headlines(doc))
	r.Set(record.Links, absLinks(doc, r.String(record.URL)))

	lang := r.String(record.Language)
	if lang == "" {
		lang = "cs"
	}
	if !h.stop.Has(lang) {
		tag(log.Warn(), HTMLTextExtractorName, r).Str("language", lang).Msg("language not supported")
		return r, nil
	}

	blocks := collectBlocks(doc)
	good := h.classify(blocks, lang, h.base)
	for _, fb := range h.fallbacks {
		if len(good) > 0 {
			break
		}
		good = h.classify(blocks, lang, fb)
	}
	plain := normalize.Text(strings.Join(good, "\n"))
	r.Set(record.PlainText, plain)

	tag(log.Debug(), HTMLTextExtractorName, r).
		Int("paragraphs", len(good)).
		Int("chars", len(plain)).
		Str("charset", cs).
		Str("language", r.String(record.Language)).
		Msg("plain text extracted")
	return r, nil
}

func headlines(doc *goquery.Document) []string {
	out := []string{}
	for level := 1; level <= 6; level++ {
		doc.Find(fmt.Sprintf("h%d", level)).Each(func(_ int, s *goquery.Selection) {
			if t := squash(s.Text()); t != "" {
				out = append(out, t)
			}
		})
	}
	return out
}

func absLinks(doc *goquery.Document, base string) []string {
	baseURL, _ := url.Parse(base)
	out := []string{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if baseURL != nil {
			u = baseURL.ResolveReference(u)
		}
		if u.Scheme != "" && u.Host != "" {
			out = append(out, u.String())
		}
	})
	return out
}

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

// block is the text between two block-level boundaries
type block struct {
	text      string
	linkChars int
}

var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Table: true,
	atom.Blockquote: true, atom.Pre: true, atom.Dd: true, atom.Dt: true, atom.Dl: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Nav: true, atom.Aside: true, atom.Form: true, atom.Br: true, atom.Hr: true,
	atom.Main: true, atom.Figure: true, atom.Figcaption: true, atom.Address: true,
}

func collectBlocks(doc *goquery.Document) []block {
	var (
		out  []block
		cur  strings.Builder
		link int
	)
	flush := func() {
		if t := squash(cur.String()); t != "" {
			out = append(out, block{text: t, linkChars: min(link, len(t))})
		}
		cur.Reset()
		link = 0
	}
	var walk func(n *html.Node, inLink bool)
	walk = func(n *html.Node, inLink bool) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			if inLink {
				link += len(squash(n.Data))
			}
			return
		case html.ElementNode:
			if n.DataAtom == atom.A {
				inLink = true
			}
			if blockTags[n.DataAtom] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inLink)
		}
	}
	for _, n := range doc.Find("body").Nodes {
		walk(n, false)
	}
	flush()
	return out
}

type blockClass int

const (
	classBad blockClass = iota
	classShort
	classNearGood
	classGood
)

// classify keeps good blocks plus near-good ones within maxGoodDist of a good block
func (h *HTMLTextExtractor) classify(blocks []block, lang string, rules paragraphRules) []string {
	classes := make([]blockClass, len(blocks))
	for i, b := range blocks {
		classes[i] = h.classOf(b, lang, rules)
	}
	var out []string
	for i, c := range classes {
		switch {
		case c == classGood:
			out = append(out, blocks[i].text)
		case c == classNearGood && nearGood(classes, i, rules.maxGoodDist):
			out = append(out, blocks[i].text)
		}
	}
	return out
}

func (h *HTMLTextExtractor) classOf(b block, lang string, rules paragraphRules) blockClass {
	n := len(b.text)
	if n == 0 || float64(b.linkChars)/float64(n) > rules.maxLinkDensity {
		return classBad
	}
	words := h.stop.Words(b.text)
	if len(words) == 0 {
		return classBad
	}
	hits := 0
	for _, w := range words {
		if h.stop.Contains(lang, w) {
			hits++
		}
	}
	density := float64(hits) / float64(len(words))
	switch {
	case n < rules.lengthLow:
		return classShort
	case density >= rules.stopwordsHigh && n >= rules.lengthHigh:
		return classGood
	case density >= rules.stopwordsLow:
		return classNearGood
	}
	return classBad
}

func nearGood(classes []blockClass, i, dist int) bool {
	for j := max(0, i-dist); j <= min(len(classes)-1, i+dist); j++ {
		if classes[j] == classGood {
			return true
		}
	}
	return false
}

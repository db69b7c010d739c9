package algorithms

import (
	"context"
	"strings"

	"archivist/internal/core/record"
	"archivist/internal/platform/logger"
)

// WebPageTypeIdentifierName is the registry name of WebPageTypeIdentifier
const WebPageTypeIdentifierName = "WebPageTypeIdentifier"

// page type labels, in the order they are tested
const (
	PageNews   = "news"
	PageEshop  = "eshop"
	PageForum  = "forum"
	PageOthers = "others"
)

var pageMarkers = []struct {
	label   string
	needles []string
}{
	{PageNews, []string{
		"www.novinky.cz", "www.seznamzpravy.cz", "www.idnes.cz", "www.aktualne.cz",
		"www.denik.cz", "www.blesk.cz", "www.reflex.cz", "tn.nova.cz", "www.iprima.cz",
		"echo24.cz", "ct24.ceskatelevize.cz", "www.irozhlas.cz", "www.ceskenoviny.cz",
		"www.lidovky.cz", "www.forum24.cz", "ihned.cz", "www.parlamentnilisty.cz",
	}},
	{PageEshop, []string{"www.alza.cz", "www.mall.cz", "eshop", "e-shop"}},
	{PageForum, []string{"forum", "diskuse", "diskuze"}},
}

// WebPageTypeIdentifier labels the page from substrings of its URL
type WebPageTypeIdentifier struct{}

func (*WebPageTypeIdentifier) Name() string           { return WebPageTypeIdentifierName }
func (*WebPageTypeIdentifier) Configure(Params) error { return nil }

func (*WebPageTypeIdentifier) Apply(ctx context.Context, r *record.Record) (*record.Record, error) {
	wpt := PageType(r.String(record.URL))
	r.Set(record.WebPageType, wpt)
	tag(logger.C(ctx).Debug(), WebPageTypeIdentifierName, r).Str("web_page_type", wpt).Msg("page type detected")
	return r, nil
}

// PageType returns the first label whose marker occurs in url
func PageType(url string) string {
	for _, m := range pageMarkers {
		for _, n := range m.needles {
			if strings.Contains(url, n) {
				return m.label
			}
		}
	}
	return PageOthers
}

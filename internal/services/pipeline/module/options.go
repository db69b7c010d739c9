package module

import (
	"archivist/internal/core/algorithms"
	"archivist/internal/core/record"
	"archivist/internal/platform/config"
	"archivist/internal/services/pipeline/domain"
)

// Options holds configuration for the pipeline module
type Options struct {
	MimeGroups   []domain.MimeGroup
	Filters      []domain.Filter
	Unnecessary  []string
	SeparateCols []string

	HTMLMaxSize  int
	LangMinRatio float64
	LangMinCount int
}

// FromConfig reads the pipeline options from config with ARCHIVIST_PIPELINE_ prefix
func FromConfig(cfg config.Conf) (Options, error) {
	pc := cfg.Prefix("ARCHIVIST_PIPELINE_")

	groups := domain.DefaultMimeGroups()
	for i := range groups {
		groups[i].Pattern = pc.MayString("MIME_"+groups[i].Name, groups[i].Pattern)
	}
	filters, err := domain.ParseFilters(pc.MayString("FILTERS", `response-code=^2\d\d$`))
	if err != nil {
		return Options{}, err
	}
	return Options{
		MimeGroups: groups,
		Filters:    filters,
		Unnecessary: pc.MayCSV("UNNECESSARY_FIELDS", []string{
			record.Content, record.PlainTextTokens, record.PlainTextSentences,
		}),
		SeparateCols: pc.MayCSV("SEPARATE_COLUMNS", []string{
			record.URLKey, record.RefersTo, record.HarvestID, record.Title, record.PlainText,
			record.Language, record.Sentiment, record.Headlines, record.Topics, record.Links,
			record.WebPageType,
		}),
		HTMLMaxSize:  pc.MayInt("HTML_MAX_SIZE", algorithms.DefaultMaxHTMLSize),
		LangMinRatio: pc.MayFloat64("LANG_MIN_RATIO", 0.05),
		LangMinCount: pc.MayInt("LANG_MIN_COUNT", 3),
	}, nil
}

// Params returns per-algorithm parameters derived from the options
func (o Options) Params() map[string]algorithms.Params {
	return map[string]algorithms.Params{
		algorithms.HTMLTextExtractorName:  {"max_size": o.HTMLMaxSize},
		algorithms.LanguageIdentifierName: {"min_ratio": o.LangMinRatio, "min_count": o.LangMinCount},
	}
}

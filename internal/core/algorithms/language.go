package algorithms

import (
	"context"

	"archivist/internal/core/normalize"
	"archivist/internal/core/record"
	"archivist/internal/platform/logger"
)

// LanguageIdentifierName is the registry name of LanguageIdentifier
const LanguageIdentifierName = "LanguageIdentifier"

const (
	defaultMinRatio = 0.05
	defaultMinCount = 3
)

// LanguageIdentifier guesses the language of plain-text by counting stopwords
// text in a script without stoplists falls back to the script when it is decisive
type LanguageIdentifier struct {
	stop     *Stoplists
	minRatio float64
	minCount int
}

func (*LanguageIdentifier) Name() string { return LanguageIdentifierName }

// Configure reads min_ratio and min_count
func (l *LanguageIdentifier) Configure(p Params) error {
	stop, err := LoadStoplists()
	if err != nil {
		return err
	}
	if l.minRatio, err = p.Float("min_ratio", defaultMinRatio); err != nil {
		return err
	}
	if l.minCount, err = p.Int("min_count", defaultMinCount); err != nil {
		return err
	}
	l.stop = stop
	return nil
}

// Apply sets language when the plain text is long and recognisable enough
func (l *LanguageIdentifier) Apply(ctx context.Context, r *record.Record) (*record.Record, error) {
	text := r.String(record.PlainText)
	if text == "" {
		return r, nil
	}
	lang, hits, ok := l.stop.Guess(l.stop.Words(text), l.minRatio, l.minCount)
	ev := tag(logger.C(ctx).Debug(), LanguageIdentifierName, r).Int("stopwords", hits)
	if !ok {
		script, byScript := normalize.Script(text)
		if byScript == "" {
			ev.Str("script", script).Msg("language unknown")
			return r, nil
		}
		lang = byScript
		ev = ev.Str("script", script)
	}
	r.Set(record.Language, lang)
	ev.Str("language", lang).Msg("language guessed")
	return r, nil
}

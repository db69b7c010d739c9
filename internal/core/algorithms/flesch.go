package algorithms

import (
	"context"
	"regexp"
	"strings"

	"archivist/internal/core/record"
	"archivist/internal/platform/logger"
)

// FleschReadingEaseName is the registry name of FleschReadingEase
const FleschReadingEaseName = "FleschReadingEase"

var validWord = regexp.MustCompile(`^[\p{L}\p{N}_\-']+$`)

// vowels per language; y counts as a vowel in the west slavic languages
var vowels = map[string]string{
	"cs": "aeiouyáéěíóúůý",
	"sk": "aeiouyáäéíóôúý",
	"pl": "aeiouyąęó",
	"en": "aeiouy",
	"de": "aeiouyäöü",
	"fr": "aeiouyàâæçéèêëîïôœùûü",
	"ru": "аеёиоуыэюя",
}

// FleschReadingEase extends extra with url, sentences, words, syllables and score
type FleschReadingEase struct {
	words     WordTokenizer
	sentences SentenceTokenizer
}

func (*FleschReadingEase) Name() string           { return FleschReadingEaseName }
func (*FleschReadingEase) Configure(Params) error { return nil }

// Apply tokenizes only when the token or sentence field is missing
func (f *FleschReadingEase) Apply(ctx context.Context, r *record.Record) (*record.Record, error) {
	url := r.String(record.URL)
	if r.String(record.PlainText) == "" {
		tag(logger.C(ctx).Debug(), FleschReadingEaseName, r).Msg("no plain text")
		r.AppendExtra(url, 0, 0, 0, nil)
		return r, nil
	}
	lang := r.String(record.Language)
	if _, ok := vowels[lang]; !ok {
		lang = "cs"
	}

	if !r.Has(record.PlainTextTokens) {
		r, _ = f.words.Apply(ctx, r)
	}
	if !r.Has(record.PlainTextSentences) {
		r, _ = f.sentences.Apply(ctx, r)
	}

	var nWords, nSyl int
	for _, t := range stringList(r.Get(record.PlainTextTokens)) {
		if !validWord.MatchString(t) {
			continue
		}
		nWords++
		nSyl += Syllables(t, lang)
	}
	nSent := len(stringList(r.Get(record.PlainTextSentences)))

	var score any
	if fre, ok := FRE(nSent, nWords, nSyl); ok {
		score = fre
	}
	r.AppendExtra(url, nSent, nWords, nSyl, score)
	tag(logger.C(ctx).Debug(), FleschReadingEaseName, r).Interface("score", score).Msg("reading ease computed")
	return r, nil
}

// FRE is the Flesch reading ease score, undefined without sentences or words
func FRE(sentences, words, syllables int) (float64, bool) {
	if sentences == 0 || words == 0 {
		return 0, false
	}
	return 206.835 - 1.015*(float64(words)/float64(sentences)) - 84.6*(float64(syllables)/float64(words)), true
}

// Syllables counts vowel groups in word; a word without vowels is one syllable
// (syllabic r and l as in "vlk" or "krk")
func Syllables(word, lang string) int {
	set := vowels[lang]
	n := 0
	inGroup := false
	for _, r := range strings.ToLower(word) {
		if strings.ContainsRune(set, r) {
			if !inGroup {
				n++
			}
			inGroup = true
			continue
		}
		inGroup = false
	}
	if n == 0 {
		return 1
	}
	return n
}

// stringList accepts both the native []string and the []any a stored row decodes to
func stringList(v any) []string {
	switch xs := v.(type) {
	case []string:
		return xs
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

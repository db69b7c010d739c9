package algorithms

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"archivist/internal/core/record"
	"archivist/internal/platform/logger"
)

const (
	// WordTokenizerName is the registry name of WordTokenizer
	WordTokenizerName = "WordTokenizer"
	// SentenceTokenizerName is the registry name of SentenceTokenizer
	SentenceTokenizerName = "SentenceTokenizer"
)

// words keep inner hyphens and apostrophes, every other symbol is its own token
var wordToken = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['’\-][\p{L}\p{N}_]+)*|[^\s\p{L}\p{N}_]`)

// Words splits text into word and punctuation tokens
func Words(text string) []string {
	return wordToken.FindAllString(text, -1)
}

// Sentences splits text after terminal punctuation followed by whitespace and a capital,
// a digit or an opening quote. Line breaks always end a sentence.
// A lone capital letter before the dot is treated as an initial, not a sentence end
func Sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, splitLine(line)...)
	}
	return out
}

func splitLine(line string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		if !isTerminal(r) {
			i += size
			continue
		}
		end := i + size
		for end < len(line) {
			r2, s2 := utf8.DecodeRuneInString(line[end:])
			if !isTerminal(r2) && r2 != '"' && r2 != ')' && r2 != '“' && r2 != '”' {
				break
			}
			end += s2
		}
		j := end
		for j < len(line) {
			r2, s2 := utf8.DecodeRuneInString(line[j:])
			if !unicode.IsSpace(r2) {
				break
			}
			j += s2
		}
		if j == end || j == len(line) || r == '.' && isInitial(line[start:i]) {
			i = end
			continue
		}
		next, _ := utf8.DecodeRuneInString(line[j:])
		if unicode.IsUpper(next) || unicode.IsDigit(next) || strings.ContainsRune(`"„“'‚(`, next) {
			if s := strings.TrimSpace(line[start:end]); s != "" {
				out = append(out, s)
			}
			start = j
		}
		i = j
	}
	if s := strings.TrimSpace(line[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' || r == '…' }

// isInitial reports whether s ends with a single capital letter word
func isInitial(s string) bool {
	f := strings.Fields(s)
	if len(f) == 0 {
		return false
	}
	last := []rune(f[len(f)-1])
	return len(last) == 1 && unicode.IsUpper(last[0])
}

// WordTokenizer sets plain-text-tokens
type WordTokenizer struct{}

func (*WordTokenizer) Name() string           { return WordTokenizerName }
func (*WordTokenizer) Configure(Params) error { return nil }

func (*WordTokenizer) Apply(ctx context.Context, r *record.Record) (*record.Record, error) {
	tokens := Words(r.String(record.PlainText))
	if tokens == nil {
		tokens = []string{}
	}
	r.Set(record.PlainTextTokens, tokens)
	tag(logger.C(ctx).Debug(), WordTokenizerName, r).Int("tokens", len(tokens)).Msg("plain text tokenized")
	return r, nil
}

// SentenceTokenizer sets plain-text-sentences
type SentenceTokenizer struct{}

func (*SentenceTokenizer) Name() string           { return SentenceTokenizerName }
func (*SentenceTokenizer) Configure(Params) error { return nil }

func (*SentenceTokenizer) Apply(ctx context.Context, r *record.Record) (*record.Record, error) {
	sentences := Sentences(r.String(record.PlainText))
	if sentences == nil {
		sentences = []string{}
	}
	r.Set(record.PlainTextSentences, sentences)
	tag(logger.C(ctx).Debug(), SentenceTokenizerName, r).Int("sentences", len(sentences)).Msg("plain text split")
	return r, nil
}

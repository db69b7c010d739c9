package algorithms

import (
	"bufio"
	"bytes"
	"embed"
	"strings"
	"sync"
	"unicode"

	"archivist/internal/core/normalize"
	perr "archivist/internal/platform/errors"
)

//go:embed stoplists/*.txt
var stoplistFS embed.FS

// Languages are tried in this order; on equal counts the earlier one wins
var Languages = []string{"cs", "sk", "en", "de", "pl", "ru", "fr"}

// Stoplists holds the folded stopword sets per language
type Stoplists struct {
	norm  *normalize.Normalizer
	words map[string]map[string]struct{}
}

var (
	stopOnce sync.Once
	stopSets *Stoplists
	stopErr  error
)

// LoadStoplists parses the embedded lists once per process
func LoadStoplists() (*Stoplists, error) {
	stopOnce.Do(func() {
		s := &Stoplists{norm: normalize.New(), words: map[string]map[string]struct{}{}}
		for _, lang := range Languages {
			b, err := stoplistFS.ReadFile("stoplists/" + lang + ".txt")
			if err != nil {
				stopErr = perr.Wrapf(err, perr.ErrorCodeUnknown, "load stoplist %s", lang)
				return
			}
			set := map[string]struct{}{}
			sc := bufio.NewScanner(bytes.NewReader(b))
			for sc.Scan() {
				f := strings.Fields(sc.Text())
				if len(f) == 0 {
					continue
				}
				set[s.norm.Fold(f[0])] = struct{}{}
			}
			s.words[lang] = set
		}
		stopSets = s
	})
	return stopSets, stopErr
}

// Has reports whether lang has a stoplist
func (s *Stoplists) Has(lang string) bool {
	_, ok := s.words[lang]
	return ok
}

// Contains reports whether a folded word is a stopword of lang
func (s *Stoplists) Contains(lang, folded string) bool {
	_, ok := s.words[lang][folded]
	return ok
}

// Words splits text on whitespace, trims non word characters from both ends and folds case
func (s *Stoplists) Words(text string) []string {
	raw := strings.Fields(text)
	out := raw[:0]
	for _, w := range raw {
		w = strings.TrimFunc(w, notWordRune)
		if w == "" {
			continue
		}
		if f := s.norm.Fold(w); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Guess picks the language with the most stopwords in words
// a language needs at least max(minCount, minRatio*len(words)) hits to qualify
func (s *Stoplists) Guess(words []string, minRatio float64, minCount int) (string, int, bool) {
	if len(words) == 0 {
		return "", 0, false
	}
	need := max(float64(minCount), minRatio*float64(len(words)))

	best, bestN := "", 0
	for _, lang := range Languages {
		n := 0
		for _, w := range words {
			if s.Contains(lang, w) {
				n++
			}
		}
		if float64(n) >= need && n > bestN {
			best, bestN = lang, n
		}
	}
	return best, bestN, best != ""
}

func notWordRune(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }

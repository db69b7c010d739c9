package normalize

import "unicode"

// minScriptLetters is the letter count below which Script never names a language
const minScriptLetters = 20

// on equal counts the earlier entry wins
var scripts = []struct {
	name  string
	table *unicode.RangeTable
	lang  string // set only where the script alone identifies the language
}{
	{"Hiragana", unicode.Hiragana, "ja"},
	{"Katakana", unicode.Katakana, "ja"},
	{"Hangul", unicode.Hangul, "ko"},
	{"Han", unicode.Han, ""},
	{"Arabic", unicode.Arabic, "ar"},
	{"Hebrew", unicode.Hebrew, "he"},
	{"Thai", unicode.Thai, "th"},
	{"Greek", unicode.Greek, "el"},
	{"Cyrillic", unicode.Cyrillic, ""},
	{"Georgian", unicode.Georgian, "ka"},
	{"Armenian", unicode.Armenian, "hy"},
	{"Devanagari", unicode.Devanagari, ""},
	{"Latin", unicode.Latin, ""},
}

// Script returns the predominant script of s and, when the text holds enough letters and
// that script is decisive, a two letter language code
// Han with any kana is Japanese
func Script(s string) (script, lang string) {
	counts := make([]int, len(scripts))
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for i, sc := range scripts {
			if unicode.Is(sc.table, r) {
				counts[i]++
				break
			}
		}
	}

	best := -1
	for i, n := range counts {
		if n > 0 && (best < 0 || n > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return "", ""
	}
	script = scripts[best].name
	if letters < minScriptLetters {
		return script, ""
	}
	if script == "Han" && (counts[0] > 0 || counts[1] > 0) {
		return script, "ja"
	}
	return script, scripts[best].lang
}

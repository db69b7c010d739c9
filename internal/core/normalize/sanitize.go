package normalize

import (
	"strings"
	"unicode/utf8"
)

// Sanitize drops what must not reach stored text: C0 controls other than tab, newline and carriage
// return, DEL, the C1 block and invalid UTF-8. U+FFFD goes too, since it only marks earlier decoding damage
func Sanitize(s string) string {
	if strings.IndexFunc(s, unwanted) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unwanted(r) {
			return -1
		}
		return r
	}, s)
}

func unwanted(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f, r == utf8.RuneError:
		return true
	}
	return false
}

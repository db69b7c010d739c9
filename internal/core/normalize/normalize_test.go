package normalize

import (
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestFold_Table(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		in   string
		out  string
	}{
		{name: "identity ascii", in: "hello", out: "hello"},
		{name: "utf8 repair drops invalid bytes", in: string([]byte{0xff, 'a', 'n', 'd', 0x80}), out: "and"},
		{name: "case fold keeps diacritics", in: "ŽLUŤOUČKÝ", out: "žluťoučký"},
		{name: "combining accent composes", in: "z\u030ce\u0301", out: "žé"},
		{name: "remove zero-widths", in: "a\u200bn\u200dd", out: "and"},
		{name: "width fold fullwidth", in: "ＤＥＲ", out: "der"},
		{name: "nfkc ligature", in: "oﬃce", out: "office"},
		{name: "digits untouched", in: "2015", out: "2015"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Fold(tc.in)
			if got != tc.out {
				t.Fatalf("Fold(%q) = %q, want %q", tc.in, got, tc.out)
			}
			if again := n.Fold(got); again != got {
				t.Fatalf("Fold not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestText_CollapsesButKeepsLines(t *testing.T) {
	in := " \t První  odstavec \x00\n\n  druhý\u0085 odstavec  "
	want := "První odstavec\ndruhý odstavec"
	if got := Text(in); got != want {
		t.Fatalf("Text(%q) = %q, want %q", in, got, want)
	}
}

func TestCollapseSpaces(t *testing.T) {
	in := " \t a \n b   c \r\n "
	want := "a\nb c"
	if got := collapseSpaces(in); got != want {
		t.Fatalf("collapseSpaces(%q) = %q, want %q", in, got, want)
	}
}

func TestDecodeHTML_HeaderCharset(t *testing.T) {
	raw, err := charmap.Windows1250.NewEncoder().String("<html><body><p>Příliš žluťoučký kůň</p></body></html>")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	got, name := DecodeHTML([]byte(raw), "text/html; charset=windows-1250")
	if name != "windows-1250" {
		t.Fatalf("charset = %q", name)
	}
	if want := "<html><body><p>Příliš žluťoučký kůň</p></body></html>"; got != want {
		t.Fatalf("decoded = %q", got)
	}
}

func TestDecodeHTML_MetaAndBOM(t *testing.T) {
	page := "<html><head><meta charset=\"iso-8859-2\"></head><body>\xb9</body></html>"
	got, name := DecodeHTML([]byte(page), "text/html")
	if name != "iso-8859-2" {
		t.Fatalf("charset = %q", name)
	}
	if want := "<html><head><meta charset=\"iso-8859-2\"></head><body>š</body></html>"; got != want {
		t.Fatalf("decoded = %q", got)
	}

	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte("<p>ahoj</p>")...)
	if got, name := DecodeHTML(bom, ""); name != "utf-8" || got != "<p>ahoj</p>" {
		t.Fatalf("BOM decode = %q %q", got, name)
	}
}

func TestDecodeHTML_Empty(t *testing.T) {
	if got, name := DecodeHTML(nil, ""); got != "" || name != "utf-8" {
		t.Fatalf("empty decode = %q %q", got, name)
	}
}

func TestScript(t *testing.T) {
	cases := []struct {
		in           string
		script, lang string
	}{
		{"", "", ""},
		{"1234 !!", "", ""},
		{"Καλημέρα", "Greek", ""},
		{"Καλημέρα σας, τι κάνετε σήμερα το πρωί;", "Greek", "el"},
		{"Добрый день, как у вас сегодня дела?", "Cyrillic", ""},
		{"今日は東京で会議があります。明日は大阪に行きます。", "Hiragana", "ja"},
		{"東京都千代田区丸の内一丁目東京駅前広場中央口改札", "Han", "ja"},
		{"我们今天在北京开会明天去上海参观新的工厂", "Han", ""},
		{"안녕하세요 오늘 날씨가 정말 좋네요 산책하러 갈까요", "Hangul", "ko"},
		{"Dobrý den, jak se dnes máte? α je úhel.", "Latin", ""},
	}
	for _, c := range cases {
		script, lang := Script(c.in)
		if script != c.script || lang != c.lang {
			t.Fatalf("Script(%q) = %q,%q want %q,%q", c.in, script, lang, c.script, c.lang)
		}
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"plain text":             "plain text",
		"tab\tnew\nline\r":       "tab\tnew\nline\r",
		"nul\x00bell\x07del\x7f": "nulbelldel",
		"c1\u0085\u009fgone":     "c1gone",
		"bad\xffbytes\xc3":       "badbytes",
		"replacement�char":       "replacementchar",
		"žluťoučký 日本":           "žluťoučký 日本",
		"":                       "",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

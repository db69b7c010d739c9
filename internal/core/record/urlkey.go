package record

import (
	"net/url"
	"strings"
)

// SURT renders a URL in sort-friendly form: reversed host labels, ")" then path and query
// com,example)/a?b=1 for http://www.example.com/a?b=1
func SURT(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	labels := strings.Split(host, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	var b strings.Builder
	b.WriteString(strings.Join(labels, ","))
	if p := u.Port(); p != "" && p != "80" && p != "443" {
		b.WriteString(":" + p)
	}
	b.WriteString(")")
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	b.WriteString(strings.ToLower(p))
	if u.RawQuery != "" {
		b.WriteString("?" + strings.ToLower(u.RawQuery))
	}
	return b.String()
}

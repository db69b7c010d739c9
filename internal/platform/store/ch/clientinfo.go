package ch

import (
	"os"
	"runtime"
	"strings"

	"archivist/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// clientInfo tags every connection so system.query_log can tell the batch job from the api
func clientInfo(name, role string) clickhouse.ClientInfo {
	build := version.Info(name)
	host, _ := os.Hostname()

	info := clickhouse.ClientInfo{}
	for _, p := range [][2]string{
		{orUnknown(name), build.Version},
		{"role", role},
		{"commit", build.Commit},
		{"go", runtime.Version()},
		{"host", host},
	} {
		info.Products = append(info.Products, struct{ Name, Version string }{p[0], orUnknown(p[1])})
	}
	return info
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

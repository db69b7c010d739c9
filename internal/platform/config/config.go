// Package config reads settings from environment variables through prefixed views
//
// Readers never fail: an unset key yields the default and an unparsable one yields the default plus a warning.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"archivist/internal/platform/logger"
)

// Conf is a view over the environment that prepends its prefix to every key
type Conf struct{ prefix string }

// New returns the unprefixed view
func New() Conf { return Conf{} }

// Prefix narrows the view, e.g. New().Prefix("ARCHIVIST_").Prefix("KV_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Key is the full variable name behind key
func (c Conf) Key(key string) string { return c.prefix + key }

func (c Conf) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.Key(key)))
	return v, v != ""
}

func read[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Interface("default", def).Msg("config: unparsable value, using the default")
		return def
	}
	return v
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	if s, ok := c.lookup(key); ok {
		return s
	}
	return def
}

// MayInt returns the value as an int or def
func (c Conf) MayInt(key string, def int) int { return read(c, key, def, strconv.Atoi) }

// MayInt64 returns the value as an int64 or def
func (c Conf) MayInt64(key string, def int64) int64 {
	return read(c, key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

// MayFloat64 returns the value as a float64 or def
func (c Conf) MayFloat64(key string, def float64) float64 {
	return read(c, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool returns the value as a bool or def
func (c Conf) MayBool(key string, def bool) bool { return read(c, key, def, strconv.ParseBool) }

// MayDuration returns the value as a duration like 250ms or 2m, or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return read(c, key, def, time.ParseDuration)
}

// MayCSV splits the value on commas and drops empty items; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

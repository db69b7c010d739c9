// Package raw reads the environment before the logger exists; it must not import logger or config
package raw

import (
	"os"
	"strings"
)

// Conf is a prefixed environment view
type Conf struct{ prefix string }

// New returns the unprefixed view
func New() Conf { return Conf{} }

// Prefix narrows the view
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Get returns the trimmed value or def
func (c Conf) Get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(c.prefix + key)); v != "" {
		return v
	}
	return def
}

// GetBool treats 1, true, yes and on as true in any case; unset means def
func (c Conf) GetBool(key string, def bool) bool {
	switch strings.ToLower(c.Get(key, "")) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Package strings holds the string and slice guards used while wiring modules
package strings

import std "strings"

// IfEmpty returns def when in has no elements
func IfEmpty[T any](in, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// MustString panics with "<name> is required" when s is blank
func MustString(s, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix turns s into a route prefix with one leading slash and none trailing
// an empty or root prefix panics
func MustPrefix(s string) string {
	p := "/" + std.Trim(std.TrimSpace(s), "/ ")
	if p == "/" {
		panic("route prefix is required")
	}
	return p
}

// Package testkit holds the helpers shared by package tests
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// serialMu is held by every test that called Serial until that test ends
var serialMu sync.Mutex

// Serial keeps the calling test from overlapping other Serial tests; use it around package seams and globals
func Serial(t *testing.T) {
	t.Helper()
	serialMu.Lock()
	t.Cleanup(serialMu.Unlock)
}

// Swap replaces *target for the rest of the test
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// TempFile writes data to name inside a fresh temp dir and returns the path
func TempFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MustPanic fails the test unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	fn()
}

// MustContain fails the test unless out contains want; long output is cut to its tail
func MustContain(t *testing.T, out, want string) {
	t.Helper()
	if strings.Contains(out, want) {
		return
	}
	if len(out) > 2048 {
		out = "..." + out[len(out)-2048:]
	}
	t.Fatalf("output lacks %q:\n%s", want, out)
}

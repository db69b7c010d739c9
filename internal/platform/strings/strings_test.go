package strings

import (
	"testing"

	"archivist/internal/platform/testkit"
)

func TestMustPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"status":     "/status",
		"/status/":   "/status",
		"  /meta  ":  "/meta",
		"//a/b//":    "/a/b",
		"/api/v1/x/": "/api/v1/x",
	} {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q want %q", in, got, want)
		}
	}
	for _, bad := range []string{"", " ", "/", "///"} {
		testkit.MustPanic(t, func() { MustPrefix(bad) })
	}
}

func TestMustStringAndIfEmpty(t *testing.T) {
	if MustString("runs", "module name") != "runs" {
		t.Fatal("MustString changed its input")
	}
	testkit.MustPanic(t, func() { MustString(" \t", "module name") })

	def := []string{"GET"}
	if got := IfEmpty(nil, def); len(got) != 1 || got[0] != "GET" {
		t.Fatalf("IfEmpty(nil) = %v", got)
	}
	if got := IfEmpty([]string{"HEAD", "GET"}, def); len(got) != 2 {
		t.Fatalf("IfEmpty kept default: %v", got)
	}
}

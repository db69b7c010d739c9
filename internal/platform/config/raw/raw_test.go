package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LOG_LEVEL", " warn ")
	t.Setenv("LOG_FORMAT", "   ")
	log := New().Prefix("LOG_")
	if got := log.Get("LEVEL", "info"); got != "warn" {
		t.Fatalf("Get = %q", got)
	}
	if got := log.Get("FORMAT", "json"); got != "json" {
		t.Fatalf("blank value: %q", got)
	}
	if got := New().Get("LOG_LEVEL", ""); got != "warn" {
		t.Fatalf("root view: %q", got)
	}
}

func TestGetBool(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "yes": true, "On": true, "0": false, "no": false, "maybe": false}
	for in, want := range cases {
		t.Setenv("LOG_CALLER", in)
		if got := New().Prefix("LOG_").GetBool("CALLER", !want); got != want {
			t.Fatalf("GetBool(%q) = %v, want %v", in, got, want)
		}
	}
	t.Setenv("LOG_CALLER", "")
	if !New().Prefix("LOG_").GetBool("CALLER", true) {
		t.Fatal("unset should return the default")
	}
}

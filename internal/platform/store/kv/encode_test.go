package kv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncode_Kinds(t *testing.T) {
	if b, _ := Encode("žluťoučký"); string(b) != "žluťoučký" {
		t.Fatalf("string should encode to its UTF-8 bytes, got %q", b)
	}
	if b, _ := Encode([]byte{0, 1}); len(b) != 2 || b[1] != 1 {
		t.Fatalf("bytes should pass through")
	}
	if b, _ := Encode([]string{"a", "b"}); string(b) != `["a","b"]` {
		t.Fatalf("lists encode as JSON, got %s", b)
	}
	if b, _ := Encode(nil); len(b) != 0 {
		t.Fatalf("nil encodes empty")
	}
}

func TestEncode_MapRoundTrip(t *testing.T) {
	in := map[string]any{
		"url":     "http://example.com/",
		"offset":  int64(1234),
		"headers": map[string]any{"Content-Type": "text/html"},
		"extra":   []any{"a", int64(2)},
	}
	b, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := DecodeMap(b)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(in, DecodeValue(b)); diff != "" {
		t.Fatalf("DecodeValue should detect BSON (-want +got):\n%s", diff)
	}
}

func TestDecodeValue_Fallbacks(t *testing.T) {
	if got := DecodeValue([]byte(`["x","y"]`)); !cmp.Equal(got, []any{"x", "y"}) {
		t.Fatalf("JSON list not decoded: %#v", got)
	}
	if got := DecodeValue([]byte("plain words")); got != "plain words" {
		t.Fatalf("text not decoded: %#v", got)
	}
	if _, err := DecodeMap([]byte("nope")); err == nil {
		t.Fatalf("DecodeMap must reject non-documents")
	}
}

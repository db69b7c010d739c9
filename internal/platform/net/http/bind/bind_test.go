package bind

import (
	"net/http"
	"net/http/httptest"
	"testing"

	perr "archivist/internal/platform/errors"

	"github.com/google/go-cmp/cmp"
)

type listQuery struct {
	Prefix  string `json:"prefix,omitempty" validate:"omitempty,max=20"`
	Status  string `json:"status" validate:"omitempty,oneof=running finished failed"`
	Limit   int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	Revisit bool   `json:"revisit"`
	Skipped string `json:"-"`
	hidden  string
}

func request(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/status/runs?"+query, nil)
}

func TestQueryFillsFields(t *testing.T) {
	t.Parallel()
	var q listQuery
	err := Query(request("prefix=ArchiveProcessor-2024&status=finished&limit=%2025&revisit=true&Skipped=x&hidden=y"), &q)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := listQuery{Prefix: "ArchiveProcessor-2024", Status: "finished", Limit: 25, Revisit: true}
	if diff := cmp.Diff(want, q, cmp.AllowUnexported(listQuery{})); diff != "" {
		t.Fatalf("query (-want +got):\n%s", diff)
	}

	var empty listQuery
	if err := Query(request(""), &empty); err != nil || empty != (listQuery{}) {
		t.Fatalf("empty query: %+v %v", empty, err)
	}
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		query, field, msg string
	}{
		{"limit=abc", "limit", "limit must be an integer"},
		{"limit=99999999999999999999", "limit", "limit must be an integer"},
		{"limit=501", "limit", "limit must be at most 500"},
		{"limit=-1", "limit", "limit must be at least 1"},
		{"status=paused", "status", "status must be one of [running finished failed]"},
		{"revisit=maybe", "revisit", "revisit must be true or false"},
		{"prefix=" + "ArchiveProcessor-2024-03-05", "prefix", ""},
	}
	for _, c := range cases {
		var q listQuery
		err := Query(request(c.query), &q)
		e, ok := perr.As(err)
		if !ok || e.Code() != perr.ErrorCodeValidation || e.Field() != c.field {
			t.Fatalf("%s: err = %v", c.query, err)
		}
		if c.msg != "" && err.Error() != c.msg {
			t.Fatalf("%s: message %q, want %q", c.query, err.Error(), c.msg)
		}
	}
}

func TestQueryRejectsBadTargets(t *testing.T) {
	t.Parallel()
	var q listQuery
	if err := Query(request(""), q); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("non-pointer: %v", err)
	}
	var weird struct {
		Ratio float64 `json:"ratio"`
	}
	if err := Query(request("ratio=0.5"), &weird); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("float field: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	if err := Validate(listQuery{Status: "running"}); err != nil {
		t.Fatalf("valid struct: %v", err)
	}
	if err := Validate(42); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("non-struct: %v", err)
	}
}

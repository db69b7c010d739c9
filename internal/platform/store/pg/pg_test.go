package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/testkit"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestOpenRejectsBadURL(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Config{URL: "://bad"}, nil)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestOpenAppliesConfig(t *testing.T) {
	testkit.Serial(t)
	var seen *pgxpool.Config
	fake := &pgxpool.Pool{}
	testkit.Swap(t, &newPool, func(_ context.Context, c *pgxpool.Config) (*pgxpool.Pool, error) {
		seen = c
		return fake, nil
	})

	tr := &recorder{}
	p, err := Open(context.Background(), Config{
		URL:      "postgres://u:p@h:5432/archive?sslmode=disable",
		MaxConns: 7,
		AppName:  "archivist-batch",
		Slow:     250 * time.Millisecond,
	}, tr, func(c *pgxpool.Config) { c.MaxConnIdleTime = 42 * time.Second })
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.Pool != fake || p.Tracer != Tracer(tr) || p.Slow != 250*time.Millisecond {
		t.Fatalf("pg = %+v", p)
	}
	if seen.MaxConns != 7 || seen.MaxConnIdleTime != 42*time.Second {
		t.Fatalf("pool config: max=%d idle=%s", seen.MaxConns, seen.MaxConnIdleTime)
	}
	if got := seen.ConnConfig.RuntimeParams["application_name"]; got != "archivist-batch" {
		t.Fatalf("application_name = %q", got)
	}
}

func TestOpenPoolError(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &newPool, func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
		return nil, errors.New("dial refused")
	})
	_, err := Open(context.Background(), Config{URL: "postgres://u:p@h:5432/archive"}, nil)
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("want db error, got %v", err)
	}
}

func TestCloseNilSafe(t *testing.T) {
	t.Parallel()
	var p *PG
	p.Close()
	(&PG{}).Close()
}

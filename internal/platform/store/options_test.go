package store

import (
	"bytes"
	"context"
	"testing"

	"archivist/internal/platform/testkit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func TestOptionsApply(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()

	s, err := Open(context.Background(), Config{}, WithLogger(zerolog.New(&buf)), WithMetrics(reg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.metrics != reg {
		t.Fatal("metrics registerer not kept")
	}
	s.Log.Info().Msg("store ready")
	testkit.MustContain(t, buf.String(), "store ready")
}

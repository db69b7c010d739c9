package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"archivist/internal/core/algorithms"
	"archivist/internal/core/record"
	perr "archivist/internal/platform/errors"
	harvestrepo "archivist/internal/services/harvest/repo"
	harvestsvc "archivist/internal/services/harvest/service"
	"archivist/internal/services/ingest/domain"
	"archivist/internal/services/ingest/sink"
	"archivist/internal/services/ingest/stream"
	pipedom "archivist/internal/services/pipeline/domain"
	pipesvc "archivist/internal/services/pipeline/service"
	"archivist/internal/services/status"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

const container = "Webarchiv-Serial-20240105120000-00001-crawler.warc"

// memFS serves containers from memory and collects written part files
type memFS struct {
	mu    sync.Mutex
	files map[string]string
	out   map[string]*bytes.Buffer
}

type bufCloser struct{ *bytes.Buffer }

func (bufCloser) Close() error { return nil }

func (m *memFS) List(_ context.Context, _ string) ([]string, error) {
	var out []string
	for k := range m.files {
		out = append(out, k)
	}
	return out, nil
}

func (m *memFS) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	s, ok := m.files[uri]
	if !ok {
		return nil, perr.NotFoundf("%s does not exist", uri)
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

func (m *memFS) Create(_ context.Context, uri string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.out == nil {
		m.out = map[string]*bytes.Buffer{}
	}
	b := &bytes.Buffer{}
	m.out[uri] = b
	return bufCloser{b}, nil
}

func (m *memFS) lines(uri string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.out[uri]
	if !ok {
		return nil
	}
	return strings.Split(strings.TrimSpace(b.String()), "\n")
}

func warcRecord(typ string, n int, body string) string {
	block := "HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=utf-8\r\n\r\n" + body
	return fmt.Sprintf("WARC/1.0\r\n"+
		"WARC-Type: %s\r\n"+
		"WARC-Record-ID: <urn:uuid:00000000-0000-0000-0000-%012d>\r\n"+
		"WARC-Target-URI: http://www.example.cz/%d\r\n"+
		"WARC-Date: 2024-01-05T12:00:00Z\r\n"+
		"Content-Type: application/http; msgtype=response\r\n"+
		"Content-Length: %d\r\n\r\n%s\r\n\r\n", typ, n, n, len(block), block)
}

func executor(t *testing.T, extra bool) *pipesvc.Service {
	t.Helper()
	schema, err := record.LoadSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	filters, _ := pipedom.ParseFilters(`response-code=^2\d\d$`)
	r := pipesvc.NewRouter(pipedom.DefaultMimeGroups(), algorithms.Builtins())
	if err := r.Configure([]pipedom.ChainSpec{{Group: "HTML", Algorithms: []string{algorithms.NoopName}}}, nil); err != nil {
		t.Fatalf("configure: %v", err)
	}
	return pipesvc.New(pipesvc.Config{
		Filters:      filters,
		Unnecessary:  []string{record.Content},
		SeparateCols: []string{record.URLKey, record.HarvestID},
		ExtraMode:    extra,
	}, r, schema)
}

func driver(t *testing.T, fs *memFS, maxLen int64) (*Service, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	streams := stream.NewWARC(fs, stream.WARCConfig{
		Pattern:          "mem:*",
		AcceptedTypes:    []string{"response", "revisit"},
		MaxContentLength: maxLen,
	}, m.Skip)
	return New(streams, sink.NewText(fs, "out"), executor(t, false), NewCounters(1), m), m
}

func TestRunMixedPartition(t *testing.T) {
	defer goleak.VerifyNone(t)

	big := strings.Repeat("x", 400)
	fs := &memFS{files: map[string]string{
		container: warcRecord("request", 1, "<html></html>") +
			warcRecord("response", 2, "<html>"+big+"</html>") +
			warcRecord("response", 3, "<html><title>ok</title></html>"),
	}}
	svc, m := driver(t, fs, 300)

	totals, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if totals.Processed != 1 || totals.Failed != 0 || totals.Partitions != 1 {
		t.Fatalf("totals = %+v", totals)
	}

	lines := fs.lines("out/part-00000")
	if len(lines) != 1 {
		t.Fatalf("rows = %v", lines)
	}
	var row []any
	if err := json.Unmarshal([]byte(lines[0]), &row); err != nil {
		t.Fatalf("row json: %v", err)
	}
	if row[0] != "00000000-0000-0000-0000-000000000003" || row[1] != "cz,example)/3" || row[2] != "Webarchiv-Serial" {
		t.Fatalf("row = %v", row)
	}
	rest := row[3].(map[string]any)
	if _, ok := rest[record.Content]; ok {
		t.Fatalf("content not pruned")
	}
	if rest[record.WARCFilename] != container {
		t.Fatalf("warc-filename = %v", rest[record.WARCFilename])
	}

	if got := testutil.ToFloat64(m.Skipped.WithLabelValues(stream.SkipType)); got != 1 {
		t.Fatalf("type skips = %v", got)
	}
	if got := testutil.ToFloat64(m.Skipped.WithLabelValues(stream.SkipTooLarge)); got != 1 {
		t.Fatalf("size skips = %v", got)
	}
	if got := testutil.ToFloat64(m.Records.WithLabelValues(OutcomeProcessed)); got != 1 {
		t.Fatalf("processed metric = %v", got)
	}
}

func TestRunKeepsRowsBeforeDecodeError(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := &memFS{files: map[string]string{
		container: warcRecord("response", 1, "<html></html>") + "garbage line\r\n\r\n",
	}}
	svc, m := driver(t, fs, 0)
	totals, _ := svc.Run(context.Background())
	if totals.Processed != 1 {
		t.Fatalf("totals = %+v", totals)
	}
	if got := testutil.ToFloat64(m.Partitions.WithLabelValues(PartitionCut)); got != 1 {
		t.Fatalf("cut partitions = %v", got)
	}
}

type missingFS struct{ memFS }

func (*missingFS) List(context.Context, string) ([]string, error) { return []string{"gone.warc"}, nil }

func TestRunSkipsUnopenablePartition(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := &missingFS{}
	m := NewMetrics(prometheus.NewRegistry())
	streams := stream.NewWARC(fs, stream.WARCConfig{AcceptedTypes: []string{"response"}}, nil)
	svc := New(streams, sink.NewText(fs, "out"), executor(t, false), nil, m)
	totals, err := svc.Run(context.Background())
	if err != nil || totals.Processed != 0 || totals.Failed != 0 {
		t.Fatalf("totals = %+v err = %v", totals, err)
	}
	if got := testutil.ToFloat64(m.Partitions.WithLabelValues(PartitionFailed)); got != 1 {
		t.Fatalf("failed partitions = %v", got)
	}
}

type memHarvests struct {
	mu      sync.Mutex
	rows    map[string]record.HarvestInfo
	creates int
}

func (m *memHarvests) Exists(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

func (m *memHarvests) Create(_ context.Context, id string, info record.HarvestInfo) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.rows[id] = info
	return true
}

func (m *memHarvests) Get(context.Context, string) (harvestrepo.Harvest, bool) {
	return harvestrepo.Harvest{}, false
}

func TestRunRegistersNewHarvestOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var b strings.Builder
	for i := 1; i <= 11; i++ {
		b.WriteString(warcRecord("response", i, "<html></html>"))
	}
	fs := &memFS{files: map[string]string{container: b.String()}}
	svc, _ := driver(t, fs, 0)

	repo := &memHarvests{rows: map[string]record.HarvestInfo{}}
	tracker := status.New()
	tracker.Attach(svc.Counters)
	tracker.Start(context.Background(), []string{"archivist"})
	svc.WithHarvest(func(worker int) pipedom.HarvestRegistrar {
		return harvestsvc.NewRegistrar(repo, svc.Counters.Collector(), worker, func(ctx context.Context) {
			tracker.HarvestSeen(ctx)
		})
	})

	totals, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	tracker.Finish(context.Background(), status.Finished)

	if repo.creates != 1 {
		t.Fatalf("harvest rows written = %d", repo.creates)
	}
	if totals.Processed != 11 {
		t.Fatalf("processed = %d", totals.Processed)
	}
	if diff := cmp.Diff([]string{"Webarchiv-Serial"}, tracker.Snapshot().Harvests); diff != "" {
		t.Fatalf("harvests (-want +got):\n%s", diff)
	}
}

type lossySink struct{}

func (lossySink) Write(context.Context, pipedom.Row) domain.Result { return domain.Result{Lost: 1} }
func (lossySink) Close(context.Context) domain.Result              { return domain.Result{} }

type lossySinks struct{}

func (lossySinks) Open(context.Context, int, string) (domain.Sink, error) { return lossySink{}, nil }

func TestRunCountsLostWritesAsFailed(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := &memFS{files: map[string]string{
		container: warcRecord("response", 1, "<html></html>") + warcRecord("response", 2, "<html></html>"),
	}}
	streams := stream.NewWARC(fs, stream.WARCConfig{AcceptedTypes: []string{"response"}}, nil)
	svc := New(streams, lossySinks{}, executor(t, false), NewCounters(1), nil)
	totals, _ := svc.Run(context.Background())
	if totals.Processed != 0 || totals.Failed != 2 {
		t.Fatalf("totals = %+v", totals)
	}
}

func TestRunExtraModeRows(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := &memFS{files: map[string]string{container: warcRecord("response", 7, "<html></html>")}}
	streams := stream.NewWARC(fs, stream.WARCConfig{AcceptedTypes: []string{"response"}}, nil)
	svc := New(streams, sink.NewText(fs, "gs://bucket/run/"), executor(t, true), NewCounters(1), nil)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := fs.lines("gs://bucket/run/part-00000")
	if diff := cmp.Diff([]string{`["00000000-0000-0000-0000-000000000007"]`}, got); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

// gatedStreams tracks how many partitions are open at once
type gatedStreams struct {
	n       int
	mu      sync.Mutex
	open    int
	maxOpen int
	panicky bool
}

func (g *gatedStreams) Partitions(context.Context) ([]string, error) {
	out := make([]string, g.n)
	for i := range out {
		out[i] = fmt.Sprintf("part-%03d", i)
	}
	return out, nil
}

func (g *gatedStreams) Open(context.Context, string) (domain.Stream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open++
	g.maxOpen = max(g.maxOpen, g.open)
	return gatedStream{g}, nil
}

type gatedStream struct{ g *gatedStreams }

func (s gatedStream) Next(context.Context) (*record.Record, error) {
	if s.g.panicky {
		panic("decoder bug")
	}
	time.Sleep(2 * time.Millisecond)
	return nil, io.EOF
}

func (s gatedStream) Close() error {
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	s.g.open--
	return nil
}

// closingSinks counts closed sinks; each close commits one buffered row
type closingSinks struct{ closed atomic.Int32 }

type closingSink struct{ f *closingSinks }

func (f *closingSinks) Open(context.Context, int, string) (domain.Sink, error) {
	return closingSink{f}, nil
}

func (closingSink) Write(context.Context, pipedom.Row) domain.Result { return domain.Result{} }
func (s closingSink) Close(context.Context) domain.Result {
	s.f.closed.Add(1)
	return domain.Result{Committed: 1}
}

func TestRunBoundsOpenPartitions(t *testing.T) {
	defer goleak.VerifyNone(t)

	streams := &gatedStreams{n: 200}
	svc := New(streams, &closingSinks{}, executor(t, false), NewCounters(1), nil).WithWorkers(8)
	totals, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if totals.Partitions != 200 {
		t.Fatalf("partitions = %d", totals.Partitions)
	}
	if streams.maxOpen > 8 || streams.maxOpen == 0 {
		t.Fatalf("max concurrently open = %d, want 1..8", streams.maxOpen)
	}
	if streams.open != 0 {
		t.Fatalf("%d partitions left open", streams.open)
	}
}

func TestRunClosesSinkWhenPartitionPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	streams := &gatedStreams{n: 3, panicky: true}
	sinks := &closingSinks{}
	m := NewMetrics(prometheus.NewRegistry())
	svc := New(streams, sinks, executor(t, false), NewCounters(1), m)
	totals, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := sinks.closed.Load(); got != 3 {
		t.Fatalf("sinks closed = %d, want 3", got)
	}
	if totals.Processed != 3 {
		t.Fatalf("rows committed on close not counted: %+v", totals)
	}
	if got := testutil.ToFloat64(m.Partitions.WithLabelValues(PartitionFailed)); got != 3 {
		t.Fatalf("failed partitions = %v", got)
	}
}

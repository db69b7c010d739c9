// Package status tracks the lifecycle of one processing run and persists it to the
// processes table, mirroring the final state into ClickHouse when configured
package status

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"archivist/internal/platform/logger"
	"archivist/internal/platform/store"

	"github.com/google/uuid"
)

// Run states
const (
	Running  = "running"
	Finished = "finished"
	Failed   = "failed"
)

// RunIDPrefix starts every run id; the rest is the start time
const RunIDPrefix = "ArchiveProcessor-"

const runIDLayout = "2006-01-02-15:04:05"

// Run is the persisted state of a processing run
type Run struct {
	ID               string   `json:"id"`
	TStarted         int64    `json:"t_started"`
	TFinished        int64    `json:"t_finished,omitempty"`
	CmdArgs          string   `json:"cmd_args"`
	ApplicationID    string   `json:"application_id"`
	Status           string   `json:"operation_status"`
	RecordsProcessed int64    `json:"records_processed"`
	RecordsFailed    int64    `json:"records_failed"`
	Harvests         []string `json:"harvests"`
}

// Done reports whether the run reached a terminal state
func (r Run) Done() bool { return r.Status == Finished || r.Status == Failed }

// Counters exposes the run-wide accumulators
type Counters interface {
	Processed() int64
	Failed() int64
	Harvests() []string
}

// KV is the slice of the kv client the tracker writes through
type KV interface {
	Put(ctx context.Context, table, key string, fields map[string]any, maxRetries int) bool
}

var (
	now  = time.Now
	exit = os.Exit
)

// Tracker owns the run state; it is safe for concurrent use
// writes happen outside mu, one at a time; updates arriving during a write are folded into the next one
type Tracker struct {
	mu       sync.Mutex
	run      Run
	counters Counters

	idle    *sync.Cond
	writing bool
	dirty   bool

	kv      KV
	table   string
	retries int
	ch      store.Clickhouse
}

// Option configures a Tracker
type Option func(*Tracker)

// WithKV persists every update into table
func WithKV(c KV, table string, maxRetries int) Option {
	return func(t *Tracker) { t.kv, t.table, t.retries = c, table, maxRetries }
}

// WithClickhouse mirrors the terminal snapshot into process_runs
func WithClickhouse(c store.Clickhouse) Option { return func(t *Tracker) { t.ch = c } }

// New returns a tracker; without options it only keeps state in memory
func New(opts ...Option) *Tracker {
	t := &Tracker{}
	t.idle = sync.NewCond(&t.mu)
	for _, o := range opts {
		o(t)
	}
	return t
}

// Attach sets the accumulators read on counter refreshes
func (t *Tracker) Attach(c Counters) {
	t.mu.Lock()
	t.counters = c
	t.mu.Unlock()
}

// Start initializes the run and persists it as running; it returns the run id
func (t *Tracker) Start(ctx context.Context, args []string) string {
	t.mu.Lock()
	start := now()
	t.run = Run{
		ID:            RunIDPrefix + start.Format(runIDLayout),
		TStarted:      start.UnixMilli(),
		CmdArgs:       strings.Join(args, " "),
		ApplicationID: uuid.NewString(),
		Status:        Running,
		Harvests:      []string{},
	}
	id := t.run.ID
	t.mu.Unlock()

	t.persist(ctx, true)
	return id
}

// UpdateRunning persists a running snapshot; refreshCounters also copies the accumulators
// and belongs to the coordinating goroutine only. Partition workers pass false, and the call
// returns at once when another write is in flight
func (t *Tracker) UpdateRunning(ctx context.Context, refreshCounters bool) {
	t.mu.Lock()
	if t.run.Done() {
		t.mu.Unlock()
		return
	}
	t.run.Status = Running
	if refreshCounters {
		t.refresh()
	}
	t.mu.Unlock()

	t.persist(ctx, false)
}

// HarvestSeen is the hook partition workers call after registering a new harvest
// it persists the running state without touching the accumulators
func (t *Tracker) HarvestSeen(ctx context.Context) { t.UpdateRunning(ctx, false) }

// Finish moves the run into a terminal state; later calls are ignored
// it returns after the terminal state is written
func (t *Tracker) Finish(ctx context.Context, status string) {
	t.mu.Lock()
	if t.run.Done() {
		t.mu.Unlock()
		return
	}
	if status != Finished {
		status = Failed
	}
	t.run.Status = status
	t.run.TFinished = now().UnixMilli()
	t.refresh()
	t.mu.Unlock()

	t.persist(ctx, true)
	t.mirror(ctx, t.Snapshot())
}

// Terminate marks the run failed, persists it best-effort and exits non-zero
func (t *Tracker) Terminate(ctx context.Context, reason string, err error) {
	logger.C(ctx).Error().Err(err).Str("component", "status").Str("reason", reason).Msg("run terminated")
	t.Finish(ctx, Failed)
	exit(1)
}

// Snapshot returns a copy of the current state
func (t *Tracker) Snapshot() Run {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.run
	r.Harvests = append([]string{}, t.run.Harvests...)
	return r
}

func (t *Tracker) refresh() {
	if t.counters == nil {
		return
	}
	t.run.RecordsProcessed = t.counters.Processed()
	t.run.RecordsFailed = t.counters.Failed()
	t.run.Harvests = t.counters.Harvests()
}

// persist writes the current state; with wait it blocks until a write covering it has finished
func (t *Tracker) persist(ctx context.Context, wait bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.kv == nil || t.run.ID == "" {
		return
	}
	t.dirty = true
	if t.writing {
		if !wait {
			return
		}
		for t.writing {
			t.idle.Wait()
		}
		if !t.dirty {
			return
		}
	}

	t.writing = true
	for t.dirty {
		t.dirty = false
		r := t.run
		r.Harvests = append([]string{}, t.run.Harvests...)
		t.mu.Unlock()
		if !t.kv.Put(ctx, t.table, r.ID, r.Fields(), t.retries) {
			logger.C(ctx).Error().Str("component", "status").Str("run", r.ID).Msg("run status not persisted")
		}
		t.mu.Lock()
	}
	t.writing = false
	t.idle.Broadcast()
}

// Fields is the run as stored in the processes table
func (r Run) Fields() map[string]any {
	f := map[string]any{
		"t_started":         r.TStarted,
		"cmd_args":          r.CmdArgs,
		"application_id":    r.ApplicationID,
		"operation_status":  r.Status,
		"records_processed": r.RecordsProcessed,
		"records_failed":    r.RecordsFailed,
		"harvests":          r.Harvests,
	}
	if r.TFinished > 0 {
		f["t_finished"] = r.TFinished
	}
	return f
}

// Decode rebuilds a run from the cells Fields wrote; unreadable cells stay zero
func Decode(id string, cells map[string][]byte) Run {
	r := Run{
		ID:            id,
		CmdArgs:       string(cells["cmd_args"]),
		ApplicationID: string(cells["application_id"]),
		Status:        string(cells["operation_status"]),
		Harvests:      []string{},
	}
	r.TStarted = cellInt(cells["t_started"])
	r.TFinished = cellInt(cells["t_finished"])
	r.RecordsProcessed = cellInt(cells["records_processed"])
	r.RecordsFailed = cellInt(cells["records_failed"])
	if b := cells["harvests"]; len(b) > 0 {
		_ = json.Unmarshal(b, &r.Harvests)
	}
	return r
}

func cellInt(b []byte) int64 {
	n, _ := strconv.ParseInt(string(b), 10, 64)
	return n
}

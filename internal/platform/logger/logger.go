// Package logger owns the process zerolog root and scopes it to a request, a run or an input partition
package logger

import (
	"context"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"archivist/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the logging type passed around the repo
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level string
	// Format is json or console
	Format  string
	Service string
	Writer  io.Writer
	Caller  bool
	Fields  map[string]string
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_SERVICE and LOG_CALLER; service is used when LOG_SERVICE is unset
func FromEnv(service string) Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:   rc.Get("LEVEL", "info"),
		Format:  rc.Get("FORMAT", "json"),
		Service: rc.Get("SERVICE", service),
		Caller:  rc.GetBool("CALLER", false),
	}
}

var (
	once sync.Once
	root atomic.Pointer[Logger]
)

// Get returns the root logger, building it from the environment if Init was never called
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv(""))
	return root.Load()
}

// Init builds the root logger; calls after the first are ignored
func Init(opt Options) {
	once.Do(func() {
		l := build(opt)
		root.Store(&l)
	})
}

func build(opt Options) Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// stdout belongs to the tools that print records
	w := opt.Writer
	if w == nil {
		w = os.Stderr
	}
	if strings.EqualFold(opt.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(w).Level(level(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	keys := make([]string, 0, len(opt.Fields))
	for k := range opt.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		ctx = ctx.Str(k, opt.Fields[k])
	}
	if opt.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// level parses s; empty or unknown names mean info
func level(s string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

type scopeKey int

const (
	requestKey scopeKey = iota
	runKey
	partitionKey
)

var scopeFields = [...]string{requestKey: "request_id", runKey: "run_id", partitionKey: "partition"}

func with(ctx context.Context, k scopeKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

// WithRequest scopes ctx to an API request
func WithRequest(ctx context.Context, reqID string) context.Context {
	return with(ctx, requestKey, reqID)
}

// WithRun scopes ctx to a processing run
func WithRun(ctx context.Context, runID string) context.Context { return with(ctx, runKey, runID) }

// WithPartition scopes ctx to the input partition a worker owns
func WithPartition(ctx context.Context, partition string) context.Context {
	return with(ctx, partitionKey, partition)
}

// RunID is the run ctx is scoped to, or ""
func RunID(ctx context.Context) string {
	s, _ := ctx.Value(runKey).(string)
	return s
}

// C returns the root logger carrying every scope field set on ctx
func C(ctx context.Context) *Logger {
	b := Get().With()
	for k, field := range scopeFields {
		if s, ok := ctx.Value(scopeKey(k)).(string); ok {
			b = b.Str(field, s)
		}
	}
	l := b.Logger()
	return &l
}

// Named returns the root logger tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

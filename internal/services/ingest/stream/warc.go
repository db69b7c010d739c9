// Package stream opens partitions as record streams: WARC containers or stored rows
package stream

import (
	"context"
	"errors"
	"io"

	"archivist/internal/adapters/ingest/warc"
	"archivist/internal/adapters/source"
	"archivist/internal/core/record"
	"archivist/internal/platform/logger"
	"archivist/internal/services/ingest/domain"
)

// Skip reasons reported to the skip hook
const (
	SkipType     = "type"
	SkipTooLarge = "too_large"
)

// WARCConfig selects which capture records become pipeline records
type WARCConfig struct {
	Pattern          string
	AcceptedTypes    []string
	MaxContentLength int64
}

// WARCFactory opens WARC containers matched by a source pattern
type WARCFactory struct {
	fs       source.FS
	cfg      WARCConfig
	accepted map[string]bool
	skip     domain.SkipHook
}

var _ domain.StreamFactory = (*WARCFactory)(nil)

// NewWARC returns a factory reading containers through fs; skip may be nil
func NewWARC(fs source.FS, cfg WARCConfig, skip domain.SkipHook) *WARCFactory {
	acc := make(map[string]bool, len(cfg.AcceptedTypes))
	for _, t := range cfg.AcceptedTypes {
		acc[t] = true
	}
	if skip == nil {
		skip = func(string) {}
	}
	return &WARCFactory{fs: fs, cfg: cfg, accepted: acc, skip: skip}
}

// Partitions lists the containers matching the pattern
func (f *WARCFactory) Partitions(ctx context.Context) ([]string, error) {
	return f.fs.List(ctx, f.cfg.Pattern)
}

// Open opens one container
func (f *WARCFactory) Open(ctx context.Context, partition string) (domain.Stream, error) {
	rc, err := f.fs.Open(ctx, partition)
	if err != nil {
		return nil, err
	}
	rd, err := warc.NewReader(rc)
	if err != nil {
		return nil, err
	}
	return &warcStream{f: f, rd: rd, source: partition}, nil
}

type warcStream struct {
	f      *WARCFactory
	rd     *warc.Reader
	source string
}

// Next skips unaccepted and oversized records without reading their blocks
func (s *warcStream) Next(ctx context.Context) (*record.Record, error) {
	for {
		wr, err := s.rd.Next()
		if err != nil {
			return nil, err
		}
		if !s.f.accepted[wr.Type] {
			s.f.skip(SkipType)
			continue
		}
		if s.f.cfg.MaxContentLength > 0 && wr.ContentLength > s.f.cfg.MaxContentLength {
			logger.C(ctx).Warn().
				Str("component", "ingest").
				Str("warc_record_id", wr.Header("WARC-Record-ID")).
				Int64("content_length", wr.ContentLength).
				Msg("record skipped: content too large")
			s.f.skip(SkipTooLarge)
			continue
		}
		capt, err := warc.ToCapture(wr, s.source)
		if err != nil {
			return nil, err
		}
		rec := record.FromCapture(capt)
		rec.Set(record.WARCOffset, s.rd.Offset())
		rec.NormalizeInts()
		return rec, nil
	}
}

func (s *warcStream) Close() error {
	err := s.rd.Close()
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

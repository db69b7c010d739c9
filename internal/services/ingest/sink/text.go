package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"archivist/internal/adapters/source"
	"archivist/internal/platform/logger"
	"archivist/internal/services/ingest/domain"
	pipedom "archivist/internal/services/pipeline/domain"
)

// TextFactory writes one JSON-lines part file per worker under dir
type TextFactory struct {
	fs  source.FS
	dir string
}

var _ domain.SinkFactory = (*TextFactory)(nil)

// NewText returns the part-file sink factory; dir may be local or gs://
func NewText(fs source.FS, dir string) *TextFactory {
	return &TextFactory{fs: fs, dir: dir}
}

// PartName is the file name of a worker's part file
func PartName(worker int) string { return fmt.Sprintf("part-%05d", worker) }

// Open implements domain.SinkFactory
func (f *TextFactory) Open(ctx context.Context, worker int, _ string) (domain.Sink, error) {
	w, err := f.fs.Create(ctx, source.Join(f.dir, PartName(worker)))
	if err != nil {
		return nil, err
	}
	return &textSink{w: w, buf: bufio.NewWriterSize(w, 256*1024)}, nil
}

type textSink struct {
	w   io.WriteCloser
	buf *bufio.Writer

	// rows buffered but not yet known to be durable
	pending int
}

func (s *textSink) Write(ctx context.Context, row pipedom.Row) domain.Result {
	b, err := json.Marshal(row)
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("component", "ingest").Str("row_key", row.Key()).Msg("row not JSON-encodable")
		return domain.Result{Lost: 1}
	}
	b = append(b, '\n')
	if _, err := s.buf.Write(b); err != nil {
		logger.C(ctx).Error().Err(err).Str("component", "ingest").Msg("part file write failed")
		lost := s.pending + 1
		s.pending = 0
		return domain.Result{Lost: lost}
	}
	s.pending++
	return domain.Result{}
}

// Close flushes and closes the file; buffered rows count as committed only if both succeed
func (s *textSink) Close(ctx context.Context) domain.Result {
	n := s.pending
	s.pending = 0
	ferr := s.buf.Flush()
	cerr := s.w.Close()
	if ferr != nil || cerr != nil {
		logger.C(ctx).Error().Err(firstErr(ferr, cerr)).Str("component", "ingest").Msg("part file not finalized")
		return domain.Result{Lost: n}
	}
	return domain.Result{Committed: n}
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

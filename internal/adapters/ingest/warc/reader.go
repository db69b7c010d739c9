package warc

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"

	"github.com/klauspost/compress/gzip"
)

const (
	maxHeaderLine = 1 << 20
	maxHeaders    = 1024
)

// ErrMalformed marks structurally invalid containers; the stream cannot be resumed after it
var ErrMalformed = errors.New("warc: malformed container")

// countingReader counts bytes handed to the decompressor
// it implements io.ByteReader so gzip never reads past a member boundary
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// Reader streams records from a WARC container, gzipped or plain
type Reader struct {
	src io.ReadCloser
	in  *countingReader
	gz  *gzip.Reader
	br  *bufio.Reader

	// pos counts uncompressed bytes consumed by the parser
	pos         int64
	memberStart int64
	recStart    int64

	cur     *Record
	remain  int64
	err     error
	records int
	bytes   int64
	sampled bool
}

// NewReader sniffs the gzip magic and prepares the first member
// src is closed when NewReader fails
func NewReader(src io.ReadCloser) (*Reader, error) {
	in := &countingReader{r: bufio.NewReaderSize(src, 64*1024)}
	rd := &Reader{src: src, in: in}

	magic, err := in.r.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = src.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeDecode, "warc: read magic")
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(in)
		if err != nil {
			_ = src.Close()
			return nil, perr.Wrap(err, perr.ErrorCodeDecode, "warc: gzip header")
		}
		gz.Multistream(false)
		rd.gz = gz
		rd.br = bufio.NewReader(gz)
		return rd, nil
	}
	rd.br = in.r
	return rd, nil
}

// Compressed reports whether the container is gzipped
func (rd *Reader) Compressed() bool { return rd.gz != nil }

// Next returns the next record; io.EOF when the container is exhausted
// an unread block of the previous record is drained first
func (rd *Reader) Next() (*Record, error) {
	if rd.err != nil {
		return nil, rd.err
	}
	if err := rd.drain(); err != nil {
		return nil, rd.fail(err)
	}

	line, err := rd.firstLine()
	if err != nil {
		return nil, rd.fail(err)
	}
	if !strings.HasPrefix(line, "WARC/") {
		return nil, rd.fail(perr.Wrapf(ErrMalformed, perr.ErrorCodeDecode, "warc: expected version line at offset %d", rd.recStart))
	}

	hdrs, err := rd.readHeaders()
	if err != nil {
		return nil, rd.fail(err)
	}
	rec := &Record{Version: strings.TrimSpace(line), Headers: hdrs}
	rec.Type = strings.ToLower(rec.Header("WARC-Type"))

	cl := rec.Header("Content-Length")
	n, convErr := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
	if convErr != nil || n < 0 {
		return nil, rd.fail(perr.Wrapf(ErrMalformed, perr.ErrorCodeDecode, "warc: bad Content-Length %q at offset %d", cl, rd.recStart))
	}
	rec.ContentLength = n
	rd.remain = n
	rec.Block = &blockReader{rd: rd}
	rd.cur = rec
	rd.records++

	if !rd.sampled {
		rd.sampled = true
		logger.Named("warc").Debug().
			Str("version", rec.Version).
			Str("type", rec.Type).
			Int64("content_length", n).
			Bool("gzip", rd.Compressed()).
			Msg("warc: first record")
	}
	return rec, nil
}

// Offset is where the current record starts in the container, compressed bytes for gzip
// containers. It is only final once the record block has been read to the end
func (rd *Reader) Offset() int64 {
	if rd.gz != nil {
		return rd.memberStart
	}
	return rd.recStart
}

// Close closes the decompressor and then the source
func (rd *Reader) Close() error {
	var first error
	if rd.gz != nil {
		if err := rd.gz.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			first = err
		}
	}
	if rd.src != nil {
		if err := rd.src.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns records parsed and uncompressed bytes consumed so far
func (rd *Reader) Stats() (records int, bytes int64) {
	return rd.records, rd.bytes + rd.pos
}

func (rd *Reader) fail(err error) error {
	if errors.Is(err, io.EOF) {
		rd.err = io.EOF
		return io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = perr.Wrap(ErrMalformed, perr.ErrorCodeDecode, "warc: truncated container")
	}
	rd.err = err
	return err
}

func (rd *Reader) drain() error {
	if rd.cur == nil || rd.remain == 0 {
		return nil
	}
	_, err := io.Copy(io.Discard, rd.cur.Block)
	if err == nil && rd.remain > 0 {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// firstLine skips the blank lines separating records, crossing gzip member
// boundaries, and returns the version line of the next record
func (rd *Reader) firstLine() (string, error) {
	for {
		start := rd.pos
		line, err := rd.readLine()
		if errors.Is(err, io.EOF) && line == "" {
			if rd.gz == nil {
				return "", io.EOF
			}
			if err := rd.nextMember(); err != nil {
				return "", err
			}
			continue
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rd.recStart = start
		return line, nil
	}
}

func (rd *Reader) nextMember() error {
	rd.bytes += rd.pos
	rd.pos = 0
	start := rd.in.n
	if err := rd.gz.Reset(rd.in); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return perr.Wrap(err, perr.ErrorCodeDecode, "warc: gzip member header")
	}
	rd.gz.Multistream(false)
	rd.br.Reset(rd.gz)
	rd.memberStart = start
	return nil
}

func (rd *Reader) readHeaders() (map[string]string, error) {
	hdrs := map[string]string{}
	last := ""
	for i := 0; ; i++ {
		if i > maxHeaders {
			return nil, perr.Wrapf(ErrMalformed, perr.ErrorCodeDecode, "warc: too many headers at offset %d", rd.recStart)
		}
		line, err := rd.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			return hdrs, nil
		}
		if (line[0] == ' ' || line[0] == '\t') && last != "" {
			hdrs[last] += " " + strings.TrimSpace(line)
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, perr.Wrapf(ErrMalformed, perr.ErrorCodeDecode, "warc: bad header line %q", line)
		}
		last = strings.TrimSpace(name)
		hdrs[last] = strings.TrimSpace(value)
	}
}

// readLine returns one line without its line ending
func (rd *Reader) readLine() (string, error) {
	var buf bytes.Buffer
	for {
		chunk, err := rd.br.ReadSlice('\n')
		rd.pos += int64(len(chunk))
		buf.Write(chunk)
		if buf.Len() > maxHeaderLine {
			return "", perr.Wrap(ErrMalformed, perr.ErrorCodeDecode, "warc: header line too long")
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		line := strings.TrimRight(buf.String(), "\r\n")
		if err != nil {
			if errors.Is(err, io.EOF) && line != "" {
				return line, nil
			}
			return line, err
		}
		return line, nil
	}
}

// blockReader bounds reads to the current record block
type blockReader struct{ rd *Reader }

func (b *blockReader) Read(p []byte) (int, error) {
	rd := b.rd
	if rd.remain <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > rd.remain {
		p = p[:rd.remain]
	}
	n, err := rd.br.Read(p)
	rd.remain -= int64(n)
	rd.pos += int64(n)
	if errors.Is(err, io.EOF) && rd.remain > 0 {
		return n, io.ErrUnexpectedEOF
	}
	if err == nil && rd.remain == 0 {
		return n, nil
	}
	return n, err
}

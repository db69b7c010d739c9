package kv

import (
	"context"
	"iter"
	"strings"
	"sync"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/logger"
)

// Client is the resilient store client; one per worker
// the connection is dialed lazily and rebuilt after a failed write
type Client struct {
	dial   Dialer
	family string
	log    *logger.Logger

	mu         sync.Mutex
	conn       Conn
	tables     map[string]Table
	reconnects int
}

// Option mutates a Client during New
type Option func(*Client)

// WithFamily overrides the column family prefixed to field names
func WithFamily(f string) Option { return func(c *Client) { c.family = f } }

// WithLogger sets the logger used for retry and failure lines
func WithLogger(l *logger.Logger) Option { return func(c *Client) { c.log = l } }

// New returns a client that dials on first use
func New(dial Dialer, opts ...Option) *Client {
	c := &Client{dial: dial, family: DefaultFamily, tables: map[string]Table{}}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = logger.Named("kv")
	}
	return c
}

// Reconnects reports how many times the connection was torn down and rebuilt
func (c *Client) Reconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnects
}

// Put writes fields under key, retrying up to maxRetries attempts in total
// between attempts the connection and table handles are rebuilt; it reports success
// a row with a value that cannot be encoded is not written and reports false
func (c *Client) Put(ctx context.Context, table, key string, fields map[string]any, maxRetries int) bool {
	if maxRetries < 1 {
		maxRetries = 1
	}
	cells, err := c.encodeCells(fields)
	if err != nil {
		c.log.Error().Err(err).Str("table", table).Str("row", key).Msg("kv: put rejected; value cannot be encoded")
		return false
	}

	fails := 0
	for {
		err := c.put(ctx, table, key, cells)
		if err == nil {
			return true
		}
		fails++
		if fails < maxRetries {
			c.log.Warn().Err(err).Str("table", table).Str("row", key).
				Int("attempt", fails).Bool("retryable", perr.Retryable(err)).
				Msg("kv: put failed; reconnecting")
			c.reset()
			continue
		}
		c.log.Error().Err(err).Str("table", table).Str("row", key).Int("attempts", fails).
			Msg("kv: put failed; giving up")
		return false
	}
}

func (c *Client) put(ctx context.Context, table, key string, cells map[string][]byte) error {
	t, err := c.table(ctx, table)
	if err != nil {
		return err
	}
	return t.Put(ctx, []byte(key), cells)
}

// encodeCells prefixes field names with the family and encodes values
// one value that cannot be encoded fails the whole row
func (c *Client) encodeCells(fields map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(fields))
	for k, v := range fields {
		b, err := Encode(v)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "kv: encode field %s", k)
		}
		out[c.column(k)] = b
	}
	return out, nil
}

func (c *Client) column(name string) string {
	if strings.HasPrefix(name, c.family+":") {
		return name
	}
	return c.family + ":" + name
}

// Get returns the latest cells of a row keyed by qualifier, nil when absent or on failure
func (c *Client) Get(ctx context.Context, table, key string) map[string][]byte {
	t, err := c.table(ctx, table)
	if err != nil {
		c.log.Error().Err(err).Str("table", table).Msg("kv: get failed")
		return nil
	}
	cells, err := t.Row(ctx, []byte(key))
	if err != nil {
		c.log.Error().Err(err).Str("table", table).Str("row", key).Msg("kv: get failed")
		return nil
	}
	if len(cells) == 0 {
		return nil
	}
	return c.strip(cells)
}

// HasRow reports whether the row exists; failures read as absent
func (c *Client) HasRow(ctx context.Context, table, key string) bool {
	return len(c.Get(ctx, table, key)) > 0
}

// Scan streams the rows whose key starts with prefix; a failure is logged and yielded once, ending the sequence
func (c *Client) Scan(ctx context.Context, table, prefix string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		t, err := c.table(ctx, table)
		if err != nil {
			c.log.Error().Err(err).Str("table", table).Msg("kv: scan failed")
			yield(Row{}, err)
			return
		}
		for r, err := range t.Scan(ctx, []byte(prefix)) {
			if err != nil {
				c.log.Error().Err(err).Str("table", table).Str("prefix", prefix).Msg("kv: scan failed")
				yield(Row{}, err)
				return
			}
			r.Cells = c.strip(r.Cells)
			if !yield(r, nil) {
				return
			}
		}
	}
}

// ScanByPrefix returns all rows whose key starts with prefix, empty on failure
func (c *Client) ScanByPrefix(ctx context.Context, table, prefix string) []Row {
	var out []Row
	for r, err := range c.Scan(ctx, table, prefix) {
		if err != nil {
			return nil
		}
		out = append(out, r)
	}
	return out
}

// CellVersions returns stored versions of one cell, newest first, empty on failure
func (c *Client) CellVersions(ctx context.Context, table, key, column string, versions int) [][]byte {
	t, err := c.table(ctx, table)
	if err != nil {
		c.log.Error().Err(err).Str("table", table).Msg("kv: cell versions failed")
		return nil
	}
	out, err := t.Cells(ctx, []byte(key), c.column(column), versions)
	if err != nil {
		c.log.Error().Err(err).Str("table", table).Str("row", key).Str("column", column).
			Msg("kv: cell versions failed")
		return nil
	}
	return out
}

// EnsureTable creates the table if absent and enables it if disabled
func (c *Client) EnsureTable(ctx context.Context, name string, maxVersions int) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	infos, err := conn.Tables(ctx)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "kv: list tables")
	}
	for _, ti := range infos {
		if ti.Name != name {
			continue
		}
		if !ti.Enabled {
			if err := conn.EnableTable(ctx, name); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeStorage, "kv: enable table %s", name)
			}
			c.log.Info().Str("table", name).Msg("kv: table enabled")
			return nil
		}
		c.log.Debug().Str("table", name).Msg("kv: table OK")
		return nil
	}
	if err := conn.CreateTable(ctx, name, c.family, maxVersions); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "kv: create table %s", name)
	}
	c.log.Info().Str("table", name).Int("max_versions", maxVersions).Msg("kv: table created")
	return nil
}

// EnsureAllTables ensures every pipeline table with its version policy
func (c *Client) EnsureAllTables(ctx context.Context, t Tables) error {
	for _, spec := range t.Specs() {
		if err := c.EnsureTable(ctx, spec.Name, spec.MaxVersions); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTable drops a table and forgets its cached handle
func (c *Client) DeleteTable(ctx context.Context, name string) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.tables, name)
	c.mu.Unlock()
	return perr.WrapIf(conn.DeleteTable(ctx, name), perr.ErrorCodeStorage, "kv: delete table")
}

// Close releases the connection; the client can be used again afterwards
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = map[string]Table{}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) connect(ctx context.Context) (Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) (Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "kv: dial")
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) table(ctx context.Context, name string) (Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[name]; ok {
		return t, nil
	}
	conn, err := c.connectLocked(ctx)
	if err != nil {
		return nil, err
	}
	t, err := conn.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	c.tables[name] = t
	return t, nil
}

// reset closes the connection and clears the handle cache; the next call redials
func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.log.Debug().Err(err).Msg("kv: close during reconnect")
		}
	}
	c.conn = nil
	c.tables = map[string]Table{}
	c.reconnects++
}

func (c *Client) strip(cells map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(cells))
	p := c.family + ":"
	for k, v := range cells {
		out[strings.TrimPrefix(k, p)] = v
	}
	return out
}

package kv

import (
	"context"
	"errors"
	"iter"
	"time"

	perr "archivist/internal/platform/errors"
	"archivist/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgx.Conn and *pgxpool.Pool
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const catalogDDL = `CREATE TABLE IF NOT EXISTS kv_tables (
	name         text PRIMARY KEY,
	family       text NOT NULL,
	max_versions integer NOT NULL CHECK (max_versions > 0),
	enabled      boolean NOT NULL DEFAULT true
)`

var connect = pgx.Connect

// Dial returns a Dialer that opens a dedicated Postgres connection per call
func Dial(url string, tracer pg.Tracer, slow time.Duration) Dialer {
	return func(ctx context.Context) (Conn, error) {
		c, err := connect(ctx, url)
		if err != nil {
			return nil, err
		}
		pc := &pgConn{q: c, tracer: tracer, slow: slow, close: func() error {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return c.Close(cctx)
		}}
		if err := pc.bootstrap(ctx); err != nil {
			_ = pc.Close()
			return nil, err
		}
		return pc, nil
	}
}

// FromPool returns a Dialer sharing the store's pool; closing a conn leaves the pool open
func FromPool(p *pg.PG) Dialer {
	return func(ctx context.Context) (Conn, error) {
		if p == nil || p.Pool == nil {
			return nil, perr.Unavailablef("kv: postgres pool not configured")
		}
		pc := &pgConn{q: p.Pool, tracer: p.Tracer, slow: p.Slow, close: func() error { return nil }}
		if err := pc.bootstrap(ctx); err != nil {
			return nil, err
		}
		return pc, nil
	}
}

type pgConn struct {
	q      querier
	tracer pg.Tracer
	slow   time.Duration
	close  func() error
}

var _ Conn = (*pgConn)(nil)

func (c *pgConn) bootstrap(ctx context.Context) error {
	_, err := c.exec(ctx, c.q, catalogDDL)
	return perr.WrapIf(err, perr.ErrorCodeDB, "kv: create catalog")
}

func (c *pgConn) Close() error { return c.close() }

func (c *pgConn) Tables(ctx context.Context) ([]TableInfo, error) {
	const q = `SELECT name, family, max_versions, enabled FROM kv_tables ORDER BY name`
	start := time.Now()
	rows, err := c.q.Query(ctx, q)
	c.trace(ctx, q, 0, start, err)
	if err != nil {
		return nil, perr.FromPostgres(err, "kv: list tables")
	}
	defer rows.Close()
	var out []TableInfo
	for rows.Next() {
		var ti TableInfo
		if err := rows.Scan(&ti.Name, &ti.Family, &ti.MaxVersions, &ti.Enabled); err != nil {
			return nil, perr.FromPostgres(err, "kv: scan table info")
		}
		out = append(out, ti)
	}
	return out, perr.WrapIf(rows.Err(), perr.ErrorCodeDB, "kv: list tables")
}

func (c *pgConn) CreateTable(ctx context.Context, name, family string, maxVersions int) error {
	if maxVersions < 1 {
		maxVersions = 1
	}
	ident := physical(name)
	tx, err := c.q.Begin(ctx)
	if err != nil {
		return perr.FromPostgres(err, "kv: begin create table")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ddl := `CREATE TABLE IF NOT EXISTS ` + ident + ` (
		row_key bytea  NOT NULL,
		col     text   NOT NULL,
		ts      bigint NOT NULL,
		val     bytea  NOT NULL,
		PRIMARY KEY (row_key, col, ts)
	)`
	if _, err := c.exec(ctx, tx, ddl); err != nil {
		return perr.FromPostgres(err, "kv: create table")
	}
	if _, err := c.exec(ctx, tx,
		`INSERT INTO kv_tables (name, family, max_versions, enabled) VALUES ($1, $2, $3, true)
		 ON CONFLICT (name) DO UPDATE SET family = EXCLUDED.family, max_versions = EXCLUDED.max_versions`,
		name, family, maxVersions); err != nil {
		return perr.FromPostgres(err, "kv: register table")
	}
	return perr.FromPostgres(tx.Commit(ctx), "kv: commit create table")
}

func (c *pgConn) EnableTable(ctx context.Context, name string) error {
	tag, err := c.exec(ctx, c.q, `UPDATE kv_tables SET enabled = true WHERE name = $1`, name)
	if err != nil {
		return perr.FromPostgres(err, "kv: enable table")
	}
	if tag.RowsAffected() == 0 {
		return perr.NotFoundf("kv: table %s does not exist", name)
	}
	return nil
}

func (c *pgConn) DeleteTable(ctx context.Context, name string) error {
	tx, err := c.q.Begin(ctx)
	if err != nil {
		return perr.FromPostgres(err, "kv: begin delete table")
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := c.exec(ctx, tx, `DROP TABLE IF EXISTS `+physical(name)); err != nil {
		return perr.FromPostgres(err, "kv: drop table")
	}
	if _, err := c.exec(ctx, tx, `DELETE FROM kv_tables WHERE name = $1`, name); err != nil {
		return perr.FromPostgres(err, "kv: unregister table")
	}
	return perr.FromPostgres(tx.Commit(ctx), "kv: commit delete table")
}

func (c *pgConn) Table(ctx context.Context, name string) (Table, error) {
	const q = `SELECT max_versions, enabled FROM kv_tables WHERE name = $1`
	var (
		maxVersions int
		enabled     bool
	)
	start := time.Now()
	err := c.q.QueryRow(ctx, q, name).Scan(&maxVersions, &enabled)
	c.trace(ctx, q, 1, start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, perr.NotFoundf("kv: table %s does not exist", name)
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "kv: open table")
	}
	if !enabled {
		return nil, perr.Unavailablef("kv: table %s is disabled", name)
	}
	return &pgTable{c: c, ident: physical(name), maxVersions: maxVersions}, nil
}

type pgTable struct {
	c           *pgConn
	ident       string
	maxVersions int
}

func (t *pgTable) Put(ctx context.Context, row []byte, cells map[string][]byte) error {
	tx, err := t.c.q.Begin(ctx)
	if err != nil {
		return perr.FromPostgres(err, "kv: begin put")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ts := time.Now().UnixNano()
	upsert := `INSERT INTO ` + t.ident + ` (row_key, col, ts, val) VALUES ($1, $2, $3, $4)
		ON CONFLICT (row_key, col, ts) DO UPDATE SET val = EXCLUDED.val`
	trim := `DELETE FROM ` + t.ident + ` WHERE row_key = $1 AND col = $2 AND ts < (
		SELECT min(ts) FROM (
			SELECT ts FROM ` + t.ident + ` WHERE row_key = $1 AND col = $2 ORDER BY ts DESC LIMIT $3
		) keep
	)`
	for col, val := range cells {
		if _, err := t.c.exec(ctx, tx, upsert, row, col, ts, val); err != nil {
			return perr.FromPostgres(err, "kv: put cell")
		}
		if _, err := t.c.exec(ctx, tx, trim, row, col, t.maxVersions); err != nil {
			return perr.FromPostgres(err, "kv: trim versions")
		}
	}
	return perr.FromPostgres(tx.Commit(ctx), "kv: commit put")
}

func (t *pgTable) Row(ctx context.Context, row []byte) (map[string][]byte, error) {
	q := `SELECT DISTINCT ON (col) col, val FROM ` + t.ident + ` WHERE row_key = $1 ORDER BY col, ts DESC`
	start := time.Now()
	rows, err := t.c.q.Query(ctx, q, row)
	t.c.trace(ctx, q, 1, start, err)
	if err != nil {
		return nil, perr.FromPostgres(err, "kv: get row")
	}
	defer rows.Close()
	out := map[string][]byte{}
	for rows.Next() {
		var (
			col string
			val []byte
		)
		if err := rows.Scan(&col, &val); err != nil {
			return nil, perr.FromPostgres(err, "kv: scan cell")
		}
		out[col] = val
	}
	return out, perr.WrapIf(rows.Err(), perr.ErrorCodeDB, "kv: get row")
}

func (t *pgTable) Scan(ctx context.Context, prefix []byte) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		q := `SELECT DISTINCT ON (row_key, col) row_key, col, val FROM ` + t.ident + `
			WHERE substring(row_key from 1 for $2) = $1
			ORDER BY row_key, col, ts DESC`
		start := time.Now()
		rows, err := t.c.q.Query(ctx, q, prefix, len(prefix))
		t.c.trace(ctx, q, 2, start, err)
		if err != nil {
			yield(Row{}, perr.FromPostgres(err, "kv: scan"))
			return
		}
		defer rows.Close()

		var cur Row
		for rows.Next() {
			var (
				key []byte
				col string
				val []byte
			)
			if err := rows.Scan(&key, &col, &val); err != nil {
				yield(Row{}, perr.FromPostgres(err, "kv: scan cell"))
				return
			}
			if cur.Cells == nil || cur.Key != string(key) {
				if cur.Cells != nil && !yield(cur, nil) {
					return
				}
				cur = Row{Key: string(key), Cells: map[string][]byte{}}
			}
			cur.Cells[col] = val
		}
		if err := rows.Err(); err != nil {
			yield(Row{}, perr.Wrap(err, perr.ErrorCodeDB, "kv: scan"))
			return
		}
		if cur.Cells != nil {
			yield(cur, nil)
		}
	}
}

func (t *pgTable) Cells(ctx context.Context, row []byte, column string, versions int) ([][]byte, error) {
	if versions < 1 {
		versions = t.maxVersions
	}
	q := `SELECT val FROM ` + t.ident + ` WHERE row_key = $1 AND col = $2 ORDER BY ts DESC LIMIT $3`
	start := time.Now()
	rows, err := t.c.q.Query(ctx, q, row, column, versions)
	t.c.trace(ctx, q, 3, start, err)
	if err != nil {
		return nil, perr.FromPostgres(err, "kv: cell versions")
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var val []byte
		if err := rows.Scan(&val); err != nil {
			return nil, perr.FromPostgres(err, "kv: scan version")
		}
		out = append(out, val)
	}
	return out, perr.WrapIf(rows.Err(), perr.ErrorCodeDB, "kv: cell versions")
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (c *pgConn) exec(ctx context.Context, e execer, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := e.Exec(ctx, sql, args...)
	c.trace(ctx, sql, len(args), start, err)
	return tag, err
}

func (c *pgConn) trace(ctx context.Context, sql string, args int, start time.Time, err error) {
	if c.tracer != nil {
		c.tracer.OnQuery(ctx, pg.NewEvent(sql, args, start, err, c.slow))
	}
}

// physical maps a logical table name onto its quoted Postgres identifier
func physical(name string) string { return pgx.Identifier{"kv_" + name}.Sanitize() }

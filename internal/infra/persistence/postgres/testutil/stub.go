// Package testutil provides an in-memory database/sql driver that speaks the
// few statements the postgres graph store issues: CREATE TABLE, DELETE FROM,
// INSERT INTO ... VALUES and SELECT cols FROM.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var driverSeq atomic.Int64

// Fault names an operation that Conn can be told to fail.
type Fault string

const (
	FaultPing   Fault = "ping"
	FaultBegin  Fault = "begin"
	FaultCommit Fault = "commit"
	FaultCreate Fault = "create"
	FaultDelete Fault = "delete"
	FaultInsert Fault = "insert"
	FaultSelect Fault = "select"
	FaultRows   Fault = "rows"
)

// Row is one stored row keyed by lower-case column name.
type Row map[string]driver.Value

// Conn is a single shared connection holding every table in memory.
type Conn struct {
	mu         sync.Mutex
	statements []string
	tables     map[string][]Row
	faults     map[Fault]error
}

// Open registers a uniquely named driver backed by a fresh Conn and returns a
// sql.DB on it.
func Open() (*sql.DB, *Conn) {
	conn := &Conn{tables: make(map[string][]Row), faults: make(map[Fault]error)}
	name := fmt.Sprintf("pathwaycore-stub-%d", driverSeq.Add(1))
	sql.Register(name, connector{conn: conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Fail makes op return err until Recover is called. A nil err uses a generic
// error naming the operation.
func (c *Conn) Fail(op Fault, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		err = fmt.Errorf("stub %s failed", op)
	}
	c.faults[op] = err
}

// Recover clears every injected fault.
func (c *Conn) Recover() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = make(map[Fault]error)
}

// Statements returns the statements executed so far, in order.
func (c *Conn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// Rows returns a copy of the rows of table.
func (c *Conn) Rows(table string) []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Row, 0, len(c.tables[table]))
	for _, row := range c.tables[table] {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Insert appends row to table without going through SQL.
func (c *Conn) Insert(table string, row Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[table] = append(c.tables[table], row)
}

func (c *Conn) fault(op Fault) error {
	return c.faults[op]
}

type connector struct {
	conn *Conn
}

func (d connector) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn; statements always go through ExecContext or
// QueryContext.
func (c *Conn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements unsupported")
}

// Close implements driver.Conn.
func (c *Conn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *Conn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault(FaultPing)
}

// BeginTx implements driver.ConnBeginTx. Transactions are not isolated.
func (c *Conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(FaultBegin); err != nil {
		return nil, err
	}
	return tx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *Conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, query)
	verb, rest := splitVerb(query)
	switch verb {
	case "CREATE":
		return driver.RowsAffected(0), c.fault(FaultCreate)
	case "DELETE":
		if err := c.fault(FaultDelete); err != nil {
			return nil, err
		}
		table := tableAfter(rest, "FROM")
		n := len(c.tables[table])
		delete(c.tables, table)
		return driver.RowsAffected(n), nil
	case "INSERT":
		if err := c.fault(FaultInsert); err != nil {
			return nil, err
		}
		table, cols, err := parseInsert(rest)
		if err != nil {
			return nil, err
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("stub: %d columns but %d args for %s", len(cols), len(args), table)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		c.tables[table] = append(c.tables[table], row)
		return driver.RowsAffected(1), nil
	default:
		return nil, fmt.Errorf("stub: unsupported statement %q", query)
	}
}

// QueryContext implements driver.QueryerContext for "SELECT cols FROM table".
func (c *Conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(FaultSelect); err != nil {
		return nil, err
	}
	verb, rest := splitVerb(query)
	if verb != "SELECT" {
		return nil, fmt.Errorf("stub: unsupported query %q", query)
	}
	upper := strings.ToUpper(rest)
	from := strings.Index(upper, " FROM ")
	if from == -1 {
		return nil, fmt.Errorf("stub: select without FROM: %q", query)
	}
	cols := splitColumns(rest[:from])
	table := tableAfter(rest[from:], "FROM")
	out := &rows{cols: cols, err: c.fault(FaultRows)}
	for _, row := range c.tables[table] {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		out.values = append(out.values, vals)
	}
	return out, nil
}

type tx struct {
	conn *Conn
}

func (t tx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	return t.conn.fault(FaultCommit)
}

func (t tx) Rollback() error { return nil }

type rows struct {
	cols   []string
	values [][]driver.Value
	next   int
	err    error
}

func (r *rows) Columns() []string { return r.cols }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}

func splitVerb(query string) (string, string) {
	query = strings.TrimSpace(query)
	verb, rest, _ := strings.Cut(query, " ")
	return strings.ToUpper(verb), strings.TrimSpace(rest)
}

// tableAfter returns the lower-case identifier following keyword in clause.
func tableAfter(clause, keyword string) string {
	fields := strings.Fields(clause)
	for i, f := range fields {
		if strings.EqualFold(f, keyword) && i+1 < len(fields) {
			return strings.ToLower(strings.TrimRight(fields[i+1], "(;"))
		}
	}
	return ""
}

func parseInsert(rest string) (string, []string, error) {
	after, ok := strings.CutPrefix(strings.TrimSpace(rest), "INTO ")
	if !ok {
		return "", nil, fmt.Errorf("stub: cannot parse insert %q", rest)
	}
	name, tail, ok := strings.Cut(after, "(")
	if !ok {
		return "", nil, fmt.Errorf("stub: insert without column list %q", rest)
	}
	cols, _, ok := strings.Cut(tail, ")")
	if !ok {
		return "", nil, fmt.Errorf("stub: unterminated column list %q", rest)
	}
	return strings.ToLower(strings.TrimSpace(name)), splitColumns(cols), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}

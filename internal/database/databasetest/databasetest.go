// Package databasetest provides an in-memory database.Conn and a counting
// database.Connector so pool, health, store and HTTP behaviour can be
// tested without a database server.
//
// Usage:
//
//	c := databasetest.NewConnector()
//	c.On(`FROM "cards"`, databasetest.Result{
//	    Columns: []string{"id", "name"},
//	    Rows:    [][]any{{int64(1), "Goblin"}},
//	})
//	pool, err := database.NewPool(ctx, cfg, c.Connect, nil)
package databasetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
)

// Result is a scripted response for statements containing a given fragment.
type Result struct {
	Columns  []string
	Rows     [][]any
	Affected int64
	Err      error

	// Delay holds the statement in flight for this long, or until its
	// context is done, whichever comes first.
	Delay time.Duration
}

// wait blocks for r.Delay. It returns ctx.Err() if the context ends first.
func (r Result) wait(ctx context.Context) error {
	if r.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(r.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type rule struct {
	fragment string
	result   Result
}

// Script maps SQL fragments to responses. The first rule whose fragment is
// contained in the statement wins. Safe for concurrent use.
type Script struct {
	mu    sync.RWMutex
	rules []rule
}

// On registers a response for statements containing fragment.
func (s *Script) On(fragment string, r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{fragment, r})
}

func (s *Script) match(sql string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		if strings.Contains(sql, r.fragment) {
			return r.result, true
		}
	}
	return Result{}, false
}

// --- Conn ---

// Conn is a fake database.Conn. Statements without a matching rule return
// an empty result set.
type Conn struct {
	ID int64

	script  *Script
	dialect database.Dialect

	mu         sync.Mutex
	closed     bool
	closeCalls int
	pingErr    error
	pingDelay  time.Duration
	statements []string
}

// NewConn returns a standalone Conn using script (which may be nil).
func NewConn(script *Script) *Conn {
	if script == nil {
		script = &Script{}
	}
	return &Conn{script: script}
}

func (c *Conn) record(sql string) {
	c.mu.Lock()
	c.statements = append(c.statements, sql)
	c.mu.Unlock()
}

// Statements returns every SQL statement executed on this connection.
func (c *Conn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// SetPingError makes subsequent pings fail with err (nil restores success).
func (c *Conn) SetPingError(err error) {
	c.mu.Lock()
	c.pingErr = err
	c.mu.Unlock()
}

// SetPingDelay makes subsequent pings take d, or until ctx expires.
func (c *Conn) SetPingDelay(d time.Duration) {
	c.mu.Lock()
	c.pingDelay = d
	c.mu.Unlock()
}

// Break simulates the server dropping the connection.
func (c *Conn) Break() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// CloseCalls reports how many times Close was invoked.
func (c *Conn) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

func (c *Conn) Ping(ctx context.Context) error {
	c.mu.Lock()
	err, delay, closed := c.pingErr, c.pingDelay, c.closed
	c.mu.Unlock()

	if closed {
		return errors.New("databasetest: connection closed")
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	c.record(sql)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, _ := c.script.match(sql)
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &Rows{columns: r.Columns, rows: r.Rows, pos: -1}, nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	rows, err := c.Query(ctx, sql, args...)
	return &Row{rows: rows, err: err}
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	c.record(sql)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r, _ := c.script.match(sql)
	if err := r.wait(ctx); err != nil {
		return 0, err
	}
	return r.Affected, r.Err
}

func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCalls++
	return nil
}

func (c *Conn) Dialect() database.Dialect {
	return c.dialect
}

// --- Rows ---

// Rows iterates a scripted result set.
type Rows struct {
	columns []string
	rows    [][]any
	pos     int
	closed  bool
}

// NewRows builds a Rows value directly, for tests of scanning helpers.
func NewRows(columns []string, rows [][]any) *Rows {
	return &Rows{columns: columns, rows: rows, pos: -1}
}

func (r *Rows) Next() bool {
	if r.closed || r.pos+1 >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return errors.New("databasetest: Scan called without a current row")
	}
	return assign(r.rows[r.pos], dest)
}

func (r *Rows) Columns() ([]string, error) { return r.columns, nil }
func (r *Rows) Close()                     { r.closed = true }
func (r *Rows) Err() error                 { return nil }

// Row wraps the first row of a scripted result.
type Row struct {
	rows database.Rows
	err  error
}

// ErrNoRows is returned by Row.Scan when the scripted result is empty,
// classified as not_found like the real drivers do.
var ErrNoRows = errs.New(errs.ErrKindNotFound, "no rows in result set")

func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

// assign copies values into pointer destinations, converting between
// compatible kinds (e.g. int64 into *int).
func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("databasetest: row has %d values, Scan got %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("databasetest: destination %d is not a non-nil pointer", i)
		}
		target := dv.Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		sv := reflect.ValueOf(v)
		switch {
		case sv.Type().AssignableTo(target.Type()):
			target.Set(sv)
		case sv.Type().ConvertibleTo(target.Type()):
			target.Set(sv.Convert(target.Type()))
		default:
			return fmt.Errorf("databasetest: cannot scan %T into %s", v, target.Type())
		}
	}
	return nil
}

// --- Connector ---

// Connector opens fake connections and counts them. All connections share
// one Script.
type Connector struct {
	Script

	dialect database.Dialect
	nextID  atomic.Int64
	opened  atomic.Int64

	mu    sync.Mutex
	conns []*Conn
	fail  error
	delay time.Duration
}

// NewConnector returns a Connector producing Postgres-dialect connections.
func NewConnector() *Connector {
	return &Connector{}
}

// WithDialect switches the dialect reported by new connections.
func (c *Connector) WithDialect(d database.Dialect) *Connector {
	c.dialect = d
	return c
}

// Fail makes subsequent Connect calls return err (nil restores success).
func (c *Connector) Fail(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

// SetDelay makes Connect take d before returning.
func (c *Connector) SetDelay(d time.Duration) {
	c.mu.Lock()
	c.delay = d
	c.mu.Unlock()
}

// Connect satisfies database.Connector.
func (c *Connector) Connect(ctx context.Context) (database.Conn, error) {
	c.mu.Lock()
	fail, delay := c.fail, c.delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	conn := &Conn{ID: c.nextID.Add(1), script: &c.Script, dialect: c.dialect}
	c.opened.Add(1)

	c.mu.Lock()
	c.conns = append(c.conns, conn)
	c.mu.Unlock()
	return conn, nil
}

// Opened reports how many connections were successfully opened.
func (c *Connector) Opened() int64 {
	return c.opened.Load()
}

// Conns returns every connection opened so far.
func (c *Connector) Conns() []*Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Conn(nil), c.conns...)
}

// Live counts connections opened and not yet closed.
func (c *Connector) Live() int {
	n := 0
	for _, conn := range c.Conns() {
		if conn.CloseCalls() == 0 {
			n++
		}
	}
	return n
}

// SetPingError applies SetPingError to every connection opened so far.
func (c *Connector) SetPingError(err error) {
	for _, conn := range c.Conns() {
		conn.SetPingError(err)
	}
}

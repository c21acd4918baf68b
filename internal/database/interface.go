package database

import "context"

// Conn is a single physical database connection. The pool hands out
// exactly one Conn per Lease; a Conn is never used by two requests at
// the same time, so implementations need not be safe for concurrent use.
type Conn interface {
	// Ping performs a trivial round-trip.
	Ping(ctx context.Context) error

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	// Errors are deferred to Row.Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Exec executes a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// IsClosed reports whether the connection is no longer usable.
	// The pool discards closed connections on release.
	IsClosed() bool

	// Close terminates the connection.
	Close(ctx context.Context) error

	// Dialect tells query builders which placeholder style to emit.
	Dialect() Dialect
}

// Connector opens a new Conn. It is the pool's connection factory.
type Connector func(ctx context.Context) (Conn, error)

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

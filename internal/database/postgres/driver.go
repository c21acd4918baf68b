// Package postgres opens single PostgreSQL connections for the pool in
// package database, backed by pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
)

// PostgreSQL SQLSTATE codes the API distinguishes.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInsufficientPriv    = "42501"
	pgQueryCanceled       = "57014"
	pgAdminShutdown       = "57P01"
)

// Connector parses cfg.DSN once and returns a database.Connector that opens
// a new pgx connection per call. Connecting is bounded by
// cfg.ConnectionTimeout.
func Connector(cfg *database.Config) (database.Connector, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, "invalid postgres DSN", err)
	}
	connCfg.ConnectTimeout = cfg.ConnectionTimeout

	return func(ctx context.Context) (database.Conn, error) {
		conn, err := pgx.ConnectConfig(ctx, connCfg.Copy())
		if err != nil {
			return nil, mapError(err, "failed to connect to postgres")
		}
		return &Conn{conn: conn}, nil
	}, nil
}

// Conn is a single PostgreSQL connection. It is not safe for concurrent use;
// the pool guarantees one holder at a time.
type Conn struct {
	conn *pgx.Conn
}

// --- database.Conn implementation ---

func (c *Conn) Ping(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, c.sessionError(err, "query failed")
	}
	return &pgxRows{rows: rows, conn: c}, nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return &pgxRow{row: c.conn.QueryRow(ctx, sql, args...), conn: c}
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, c.sessionError(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// IsClosed reports whether pgx has given up on the underlying socket.
func (c *Conn) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *Conn) Close(ctx context.Context) error {
	if err := c.conn.Close(ctx); err != nil {
		return mapError(err, "close failed")
	}
	return nil
}

func (c *Conn) Dialect() database.Dialect {
	return database.DialectPostgres
}

func (c *Conn) sessionError(err error, msg string) error {
	return mapSessionError(err, msg, c.conn.IsClosed())
}

// --- pgx type wrappers ---

// pgxRows wraps pgx.Rows to satisfy database.Rows.
type pgxRows struct {
	rows pgx.Rows
	conn *Conn
}

func (r *pgxRows) Next() bool { return r.rows.Next() }
func (r *pgxRows) Close()     { r.rows.Close() }

func (r *pgxRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return r.conn.sessionError(err, "scan failed")
	}
	return nil
}

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.conn.sessionError(err, "row iteration failed")
	}
	return nil
}

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

// pgxRow wraps pgx.Row to satisfy database.Row.
type pgxRow struct {
	row  pgx.Row
	conn *Conn
}

func (r *pgxRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return r.conn.sessionError(err, "scan failed")
	}
	return nil
}

// --- error mapping ---

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// mapSessionError classifies an error raised on an established connection.
// Errors that came from neither the server nor the network, such as an
// argument pgx cannot encode or a column that does not fit its scan
// destination, leave the session usable and are query_failed.
func mapSessionError(err error, msg string, closed bool) error {
	var (
		pgErr  *pgconn.PgError
		netErr net.Error
	)
	switch {
	case closed,
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, pgx.ErrNoRows),
		errors.As(err, &pgErr),
		errors.As(err, &netErr):
		return mapError(err, msg)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

func classifySQLState(code string) errs.ErrKind {
	switch {
	case code == pgUniqueViolation, code == pgForeignKeyViolation:
		return errs.ErrKindConflict
	case code == pgInsufficientPriv:
		return errs.ErrKindPermissionDenied
	case code == pgQueryCanceled:
		return errs.ErrKindTimeout
	case code == pgAdminShutdown:
		return errs.ErrKindConnectionFailed
	// Class 08: connection exceptions. Class 28: invalid authorization.
	case len(code) >= 2 && (code[:2] == "08" || code[:2] == "28"):
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}

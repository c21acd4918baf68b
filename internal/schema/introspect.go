package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/deckbuilder/internal/database"
)

// ListTables returns all user-defined table names in the connection's
// current schema (Postgres) or database (MySQL).
func ListTables(ctx context.Context, conn database.Conn) ([]string, error) {
	const pgQuery = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	const mysqlQuery = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	q := pgQuery
	if conn.Dialect() == database.DialectMySQL {
		q = mysqlQuery
	}

	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	return database.CollectRows(rows, func(r database.Rows) (string, error) {
		var name string
		err := r.Scan(&name)
		return name, err
	})
}

// TableExists checks whether a specific table exists.
func TableExists(ctx context.Context, conn database.Conn, table string) (bool, error) {
	tables, err := ListTables(ctx, conn)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}

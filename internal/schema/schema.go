// Package schema owns the relational layout behind the catalog and auth
// endpoints: it creates the tables and checks that they exist.
package schema

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
)

//go:embed sql/*.sql
var ddl embed.FS

// Tables lists every table the API reads or writes, in creation order.
var Tables = []string{"users", "cards", "decks", "deck_cards"}

// Statements returns the DDL for d split into individual statements, so
// drivers that reject multi-statement strings can run them one at a time.
func Statements(d database.Dialect) ([]string, error) {
	raw, err := ddl.ReadFile("sql/" + d.String() + ".sql")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfig, fmt.Sprintf("no schema for dialect %s", d), err)
	}

	var stmts []string
	for _, s := range strings.Split(string(raw), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts, nil
}

// Migrate creates any missing tables. Every statement is idempotent, so
// running it against an up-to-date database is a no-op.
func Migrate(ctx context.Context, conn database.Conn) error {
	stmts, err := Statements(conn.Dialect())
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d of %d: %w", i+1, len(stmts), err)
		}
	}
	return nil
}

// Verify returns the required tables that do not exist yet. An empty
// result means the database is ready to serve.
func Verify(ctx context.Context, conn database.Conn) ([]string, error) {
	present, err := ListTables(ctx, conn)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(present))
	for _, t := range present {
		have[strings.ToLower(t)] = true
	}

	var missing []string
	for _, t := range Tables {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// Package connect picks the database driver for a DSN.
package connect

import (
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/database/mysql"
	"github.com/koustreak/deckbuilder/internal/database/postgres"
	"github.com/koustreak/deckbuilder/internal/errs"
)

// Connector returns the database.Connector for the engine named by the
// scheme of cfg.DSN.
func Connector(cfg *database.Config) (database.Connector, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindConfig, "DATABASE_URL is required")
	}

	drv, err := database.DriverFromDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	switch drv {
	case database.DriverMySQL:
		return mysql.Connector(cfg)
	default:
		return postgres.Connector(cfg)
	}
}

package database_test

import (
	"testing"
	"time"

	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := database.DefaultConfig("postgres://localhost/decks")

	assert.Equal(t, "postgres://localhost/decks", cfg.DSN)
	assert.Equal(t, int32(2), cfg.MinIdle)
	assert.Equal(t, int32(10), cfg.MaxSize)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.ConnectionTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*database.Config)
	}{
		{"zero max size", func(c *database.Config) { c.MaxSize = 0 }},
		{"negative min idle", func(c *database.Config) { c.MinIdle = -1 }},
		{"min idle above max", func(c *database.Config) { c.MinIdle = 11 }},
		{"zero connection timeout", func(c *database.Config) { c.ConnectionTimeout = 0 }},
		{"negative idle timeout", func(c *database.Config) { c.IdleTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := database.DefaultConfig("postgres://x")
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errs.IsConfig(err))
		})
	}
}

func TestConfig_MinIdleEqualToMaxIsValid(t *testing.T) {
	cfg := database.DefaultConfig("postgres://x")
	cfg.MinIdle = cfg.MaxSize
	assert.NoError(t, cfg.Validate())
}

func TestDriverFromDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want database.Driver
	}{
		{"postgres://u:p@localhost:5432/decks", database.DriverPostgres},
		{"postgresql://localhost/decks", database.DriverPostgres},
		{"POSTGRES://localhost/decks", database.DriverPostgres},
		{"mysql://u:p@tcp(localhost:3306)/decks", database.DriverMySQL},
	}
	for _, tt := range tests {
		got, err := database.DriverFromDSN(tt.dsn)
		require.NoError(t, err, tt.dsn)
		assert.Equal(t, tt.want, got, tt.dsn)
	}

	_, err := database.DriverFromDSN("sqlite://file.db")
	assert.True(t, errs.IsConfig(err))

	_, err = database.DriverFromDSN("localhost:5432")
	assert.True(t, errs.IsConfig(err))
}

package filestore

import (
	"testing"
	"time"

	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("localhost:9000", "minioadmin", "minioadmin")

	assert.Equal(t, ProviderMinIO, cfg.Provider)
	assert.Equal(t, DefaultBucket, cfg.Bucket)
	assert.Equal(t, DefaultPresignTTL, cfg.PresignTTL)
	assert.False(t, cfg.UseSSL)
	assert.True(t, cfg.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Enabled(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.Enabled())
	assert.False(t, (&Config{}).Enabled())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "azure" }},
		{"no bucket", func(c *Config) { c.Bucket = "" }},
		{"ttl too short", func(c *Config) { c.PresignTTL = 0 }},
		{"ttl too long", func(c *Config) { c.PresignTTL = 8 * 24 * time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("localhost:9000", "k", "s")
			tt.mutate(cfg)
			assert.True(t, errs.IsConfig(cfg.Validate()))
		})
	}
}

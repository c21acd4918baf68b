// Package config assembles the process configuration from a .env file, an
// optional YAML file and the environment, in that order of precedence
// (later wins). The result is validated once and then treated as read-only.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koustreak/deckbuilder/internal/auth"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/koustreak/deckbuilder/internal/filestore"
	"github.com/koustreak/deckbuilder/internal/health"
	"github.com/koustreak/deckbuilder/internal/logger"
	"github.com/koustreak/deckbuilder/internal/metrics"
	"github.com/koustreak/deckbuilder/internal/server"
	"go.yaml.in/yaml/v3"
)

// Config is the complete process configuration.
type Config struct {
	Database database.Config  `yaml:"database"`
	Server   server.Config    `yaml:"server"`
	Log      logger.Config    `yaml:"log"`
	Auth     AuthConfig       `yaml:"auth"`
	Storage  filestore.Config `yaml:"storage"`
	Health   HealthConfig     `yaml:"health"`
	Metrics  metrics.Config   `yaml:"metrics"`
}

// AuthConfig configures token issuance. An empty Secret makes the serve
// command generate a random one, so tokens do not survive a restart.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// HealthConfig bounds the deep readiness probe.
type HealthConfig struct {
	DeepTimeout time.Duration `yaml:"deep_timeout"`
}

// Options selects the files Load reads.
type Options struct {
	// EnvFile is loaded into the environment before anything else. It must
	// exist; an empty path skips it.
	EnvFile string

	// ConfigFile is an optional YAML file with tuning settings.
	ConfigFile string
}

// Default returns the built-in settings. DATABASE_URL and BIND_ADDRESS have
// no defaults.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig(""),
		Server:   *server.DefaultConfig(""),
		Log:      *logger.DefaultConfig(),
		Auth:     AuthConfig{Issuer: "deckbuilder", TokenTTL: auth.DefaultTokenTTL},
		Storage:  *filestore.DefaultConfig("", "", ""),
		Health:   HealthConfig{DeepTimeout: health.DefaultDeepTimeout},
		Metrics:  *metrics.DefaultConfig(),
	}
}

// Load builds the configuration. Every failure is a config error and is
// meant to stop the process before it binds a socket.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, errs.Wrap(errs.ErrKindConfig, fmt.Sprintf("failed to load env file %q", opts.EnvFile), err)
		}
	}

	cfg := Default()
	if opts.ConfigFile != "" {
		if err := cfg.loadYAML(opts.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.ErrKindConfig, fmt.Sprintf("failed to read config file %q", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errs.Wrap(errs.ErrKindConfig, fmt.Sprintf("failed to parse config file %q", path), err)
	}
	return nil
}

// applyEnv overrides settings from environment variables. A variable that
// is set but unparsable is an error rather than being ignored.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var problems []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	i32 := func(key string, dst *int32) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = int32(n)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("DATABASE_URL", &c.Database.DSN)
	str("BIND_ADDRESS", &c.Server.BindAddress)

	i32("DB_MIN_IDLE", &c.Database.MinIdle)
	i32("DB_MAX_SIZE", &c.Database.MaxSize)
	dur("DB_IDLE_TIMEOUT", &c.Database.IdleTimeout)
	dur("DB_CONNECTION_TIMEOUT", &c.Database.ConnectionTimeout)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("CORS_ALLOWED_ORIGIN"); ok && v != "" {
		c.Server.CORS.AllowedOrigins = splitList(v)
	}

	str("JWT_SECRET", &c.Auth.Secret)

	str("STORAGE_ENDPOINT", &c.Storage.Endpoint)
	str("STORAGE_ACCESS_KEY", &c.Storage.AccessKey)
	str("STORAGE_SECRET_KEY", &c.Storage.SecretKey)
	str("STORAGE_BUCKET", &c.Storage.Bucket)
	boolean("STORAGE_USE_SSL", &c.Storage.UseSSL)

	boolean("METRICS_ENABLED", &c.Metrics.Enabled)

	if len(problems) > 0 {
		return errs.Wrap(errs.ErrKindConfig, "invalid environment", errors.Join(problems...))
	}
	return nil
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the required variables and every section.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errs.New(errs.ErrKindConfig, "DATABASE_URL is required")
	}
	if c.Server.BindAddress == "" {
		return errs.New(errs.ErrKindConfig, "BIND_ADDRESS is required")
	}
	if _, err := database.DriverFromDSN(c.Database.DSN); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if !logger.ValidLevel(c.Log.Level) {
		return errs.New(errs.ErrKindConfig, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if c.Storage.Enabled() {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}
	if c.Auth.TokenTTL < 0 || c.Health.DeepTimeout < 0 {
		return errs.New(errs.ErrKindConfig, "auth.token_ttl and health.deep_timeout must not be negative")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errs.New(errs.ErrKindConfig, "metrics.path must start with /")
	}
	return nil
}

package server

import (
	"net/http"
	"time"

	"github.com/koustreak/deckbuilder/internal/errs"
)

// Config holds the HTTP listener settings.
type Config struct {
	// BindAddress is the host:port to listen on (BIND_ADDRESS).
	BindAddress string `yaml:"bind_address"`

	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds how long in-flight requests may run after a
	// shutdown signal.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	CORS CORSPolicy `yaml:"cors"`
}

// DefaultConfig returns listener defaults for the given address.
func DefaultConfig(bindAddress string) *Config {
	return &Config{
		BindAddress:       bindAddress,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   defaultShutdownTimeout,
		MaxBodyBytes:      1 << 20,
		CORS:              DefaultCORSPolicy(),
	}
}

// DefaultCORSPolicy allows the local frontend to call the API with GET and
// POST and a JSON body.
func DefaultCORSPolicy() CORSPolicy {
	return CORSPolicy{
		AllowedOrigins: []string{"http://localhost:8080"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	}
}

// Validate checks the listener settings.
func (c *Config) Validate() error {
	switch {
	case c.BindAddress == "":
		return errs.New(errs.ErrKindConfig, "BIND_ADDRESS is required")
	case c.ShutdownTimeout < 0:
		return errs.New(errs.ErrKindConfig, "shutdown_timeout must not be negative")
	case c.MaxBodyBytes < 0:
		return errs.New(errs.ErrKindConfig, "max_body_bytes must not be negative")
	}
	return c.CORS.Validate()
}

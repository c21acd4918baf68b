package filestore

import (
	"time"

	"github.com/koustreak/deckbuilder/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// DefaultPresignTTL is how long a presigned card art URL stays valid.
const DefaultPresignTTL = 15 * time.Minute

// DefaultBucket holds card art unless configured otherwise.
const DefaultBucket = "card-art"

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server. Empty disables
	// object storage entirely.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends (e.g. AWS S3). Setting it
	// also spares MinIO a bucket-location lookup before presigning.
	Region string `yaml:"region"`

	// Bucket is where card art is stored.
	Bucket string `yaml:"bucket"`

	// PresignTTL bounds the lifetime of presigned download URLs.
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:   ProviderMinIO,
		Endpoint:   endpoint,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
		UseSSL:     false,
		Bucket:     DefaultBucket,
		PresignTTL: DefaultPresignTTL,
	}
}

// Enabled reports whether object storage is configured at all.
func (c *Config) Enabled() bool {
	return c != nil && c.Endpoint != ""
}

// Validate checks a configuration that is Enabled.
func (c *Config) Validate() error {
	switch {
	case c.Provider != ProviderMinIO:
		return errs.New(errs.ErrKindConfig, "unsupported storage provider: "+string(c.Provider))
	case c.Bucket == "":
		return errs.New(errs.ErrKindConfig, "storage bucket is required")
	case c.PresignTTL < time.Second || c.PresignTTL > 7*24*time.Hour:
		return errs.New(errs.ErrKindConfig, "storage presign_ttl must be between 1s and 7 days")
	}
	return nil
}

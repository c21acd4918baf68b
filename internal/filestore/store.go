// Package filestore defines the object storage interface used for card art.
//
// A Store is bound to a single bucket at construction; callers pass object
// keys only. Providers live in subpackages (see filestore/minio).
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	url, err := store.PresignGetURL(ctx, card.ImageKey, cfg.PresignTTL)
package filestore

import (
	"context"
	"time"
)

// Store is the interface all object storage providers implement.
type Store interface {
	// Ping verifies the backend is reachable and the bucket exists.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// Bucket returns the name of the bucket the store is bound to.
	Bucket() string

	// StatObject returns metadata for the object at key without
	// downloading its content.
	StatObject(ctx context.Context, key string) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to
	// download the object at key without credentials.
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

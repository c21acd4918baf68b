package health

import (
	"context"

	"github.com/koustreak/deckbuilder/internal/filestore"
)

// Check names used in probe responses.
const (
	DatabaseCheckName = "db"
	StorageCheckName  = "storage"
)

// Pinger is anything that can perform a trivial round-trip.
// *database.Pool satisfies it by leasing a connection and pinging it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolChecker verifies a connection can be leased and used. It is critical:
// without the database the API cannot serve.
type PoolChecker struct {
	pool Pinger
}

// NewPoolChecker returns the database readiness check.
func NewPoolChecker(pool Pinger) *PoolChecker {
	return &PoolChecker{pool: pool}
}

func (c *PoolChecker) Name() string   { return DatabaseCheckName }
func (c *PoolChecker) Critical() bool { return true }

func (c *PoolChecker) Check(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// StoreChecker verifies the card art bucket is reachable. Card art is an
// enhancement, so a failure is reported without flipping readiness.
type StoreChecker struct {
	store filestore.Store
}

// NewStoreChecker returns the object storage readiness check.
func NewStoreChecker(store filestore.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string   { return StorageCheckName }
func (c *StoreChecker) Critical() bool { return false }

func (c *StoreChecker) Check(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	CheckName  string
	IsCritical bool
	Fn         func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.CheckName }
func (c CheckFunc) Critical() bool                  { return c.IsCritical }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

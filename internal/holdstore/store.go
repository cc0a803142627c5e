// Package holdstore keeps the ephemeral holds customers place on slots
// between selection and confirmation. The default store is in-memory and is
// explicitly not durable across restarts; Redis backs the same interface for
// deployments that need a shared cache.
package holdstore

import (
	"context"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

const (
	// DefaultTTL bounds how long a hold stays claimable after selection.
	DefaultTTL = 15 * time.Minute
	// DefaultSweepInterval is how often the background sweep evicts expired holds.
	DefaultSweepInterval = 5 * time.Minute
)

// Store is the reservation-store contract. At most one hold exists per key;
// Put overwrites any previous hold for the same key (last-hold-wins), Get
// treats expired entries as absent, Remove is idempotent, and Sweep evicts
// expired entries independently of request handling.
type Store interface {
	Put(ctx context.Context, hold domain.Hold) (domain.Hold, error)
	Get(ctx context.Context, key domain.HoldKey) (domain.Hold, bool, error)
	Remove(ctx context.Context, key domain.HoldKey) error
	Sweep(ctx context.Context) (int, error)
}

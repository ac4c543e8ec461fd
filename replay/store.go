// Package replay provides the shared persistence behind settlement
// idempotency and the discovery catalog. Settled-transaction hashes map to
// their cached settlement outcome; a record is immutable once written.
package replay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vorpalengineering/x402-stellar/types"
)

// Store is the keyed persistence the facilitator shares across workers.
// Reads and writes must be linearizable per key.
type Store interface {
	// GetSettlement returns the cached settlement outcome for a
	// transaction hash, or nil when the hash has never settled.
	GetSettlement(ctx context.Context, hash string) (*types.SettleResponse, error)

	// BeginSettlement atomically claims a hash for submission. It returns
	// false when another settlement of the same hash is already in flight
	// or already recorded. The claim expires after ttl so a crashed
	// worker cannot wedge a hash forever.
	BeginSettlement(ctx context.Context, hash string, ttl time.Duration) (bool, error)

	// CompleteSettlement records the final outcome and releases the
	// claim. The record must be visible before this returns.
	CompleteSettlement(ctx context.Context, hash string, result *types.SettleResponse) error

	// AbortSettlement releases a claim without recording an outcome, so
	// the settlement can be retried.
	AbortSettlement(ctx context.Context, hash string) error

	// PutResource registers or overwrites a discovery entry.
	PutResource(ctx context.Context, entry *types.DiscoveryResource) error

	// GetResource returns the entry for a resource URL, or nil.
	GetResource(ctx context.Context, resource string) (*types.DiscoveryResource, error)

	// DeleteResource removes an entry. Missing entries are not an error.
	DeleteResource(ctx context.Context, resource string) error

	// ListResources returns all discovery entries, unordered.
	ListResources(ctx context.Context) ([]types.DiscoveryResource, error)

	Close() error
}

// Open builds a store from a connection string. "redis://..." connects to
// a shared store; "memory://" builds the in-process fallback, which must
// only be enabled for non-production testing.
func Open(connString string, allowMemory bool) (Store, error) {
	switch {
	case strings.HasPrefix(connString, "redis://"), strings.HasPrefix(connString, "rediss://"):
		return NewRedisStore(connString)
	case connString == "memory://":
		if !allowMemory {
			return nil, fmt.Errorf("in-memory store requires allow_memory_store; refusing to start without shared replay state")
		}
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store connection string: %s", connString)
	}
}

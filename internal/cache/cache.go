// internal/cache/cache.go
//
// Best-effort TTL cache facade.
//
// Context
// -------
// Every hot lookup on the serving path (hostname → site, access settings,
// membership, active-deployment pointer) can be answered from a cache
// entry instead of a row-store round-trip.  The cache is strictly an
// accelerator: a missing backend, a connection failure, or a marshalling
// error all degrade to a miss, never to a request failure.  Callers
// therefore treat every Get as fallible-to-miss and every Set/Delete as
// fire-and-forget.
//
// Implementations
// ---------------
//   - Redis  – production backend (go-redis), JSON values, per-key TTL.
//   - Memory – map + expiry, used by tests and cacheless single-node
//     deployments.
//   - Nop    – permanent miss, for running with no cache at all.
//
// The concrete cache is constructed once in cmd/web and injected into the
// resolver, evaluator, and services.  No package-level singleton.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TTL is the default lifetime for every cached entry.  Mutating
// operations invalidate proactively, so TTL only bounds staleness when an
// invalidation was skipped (e.g., a crash between write and delete).
const TTL = 300 * time.Second

// Cache is the read/write contract shared by all backends.  Get reports
// a miss for absent keys and for any backend error; Set and Delete
// swallow errors after logging them.
type Cache interface {
	// Get returns the raw JSON bytes stored under key, or ok=false on
	// miss or backend error.
	Get(ctx context.Context, key string) (val []byte, ok bool)

	// Set marshals v to JSON and stores it under key for ttl.
	Set(ctx context.Context, key string, v any, ttl time.Duration)

	// Delete removes the given keys.  Unknown keys are ignored.
	Delete(ctx context.Context, keys ...string)

	// Close releases the backend connection, if any.
	Close() error
}

// GetJSON is a convenience wrapper that unmarshals a hit into out.  A
// corrupt entry is treated as a miss.
func GetJSON(ctx context.Context, c Cache, key string, out any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.Delete(ctx, key)
		return false
	}
	return true
}

//
// Nop backend
//

// Nop is a Cache that never stores anything.  Every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool)      { return nil, false }
func (Nop) Set(context.Context, string, any, time.Duration) {}
func (Nop) Delete(context.Context, ...string)               {}
func (Nop) Close() error                                    { return nil }

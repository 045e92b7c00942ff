// internal/cache/memory.go
//
// In-process Cache used by tests and by single-node deployments that run
// without Redis.  Expiry is checked lazily on Get; there is no background
// sweeper, which is fine for the small working set (one entry per hot
// site plus memberships).
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memEntry struct {
	val []byte
	exp time.Time
}

// Memory is a mutex-guarded map Cache.
type Memory struct {
	mu sync.RWMutex
	m  map[string]memEntry
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]memEntry, 64)}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	ent, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(ent.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}
	return ent.val, true
}

func (c *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.m[key] = memEntry{val: raw, exp: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Memory) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()
}

func (c *Memory) Close() error { return nil }

// Len reports the number of live entries; test helper.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

package accounts

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TreeCache holds per-tenant chart snapshots for a fixed TTL. Registry
// mutations remove the tenant's entry and bump its generation, so a snapshot
// loaded before the mutation can no longer be stored.
type TreeCache struct {
	lru *expirable.LRU[string, *Chart]

	mu   sync.Mutex
	gens map[string]uint64
}

// NewTreeCache creates a cache of up to size tenants.
func NewTreeCache(size int, ttl time.Duration) *TreeCache {
	if size <= 0 {
		size = 256
	}
	return &TreeCache{
		lru:  expirable.NewLRU[string, *Chart](size, nil, ttl),
		gens: make(map[string]uint64),
	}
}

// Get returns the cached chart for tenant.
func (c *TreeCache) Get(tenantID string) (*Chart, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(tenantID)
}

// Generation returns the tenant's current generation. Take it before loading
// the accounts a snapshot is built from.
func (c *TreeCache) Generation(tenantID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tenantID]
}

// Set stores chart for tenant unless the tenant was invalidated after gen was
// taken. It reports whether the chart was stored.
func (c *TreeCache) Set(tenantID string, gen uint64, chart *Chart) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[tenantID] != gen {
		return false
	}
	c.lru.Add(tenantID, chart)
	return true
}

// Invalidate drops the tenant's snapshot.
func (c *TreeCache) Invalidate(tenantID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[tenantID]++
	c.lru.Remove(tenantID)
}

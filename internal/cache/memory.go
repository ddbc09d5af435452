package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemoryCache is a process-local ReportCache used when Redis is not configured.
// Entries never expire; Invalidate is the only eviction.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (c *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.RLock()
	raw, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, routes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		for _, route := range routes {
			if strings.HasPrefix(key, route) {
				delete(c.entries, key)
				break
			}
		}
	}
	return nil
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

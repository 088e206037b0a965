package cache

import (
	"bytes"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps encoded results in process memory. Entries are copied on
// the way in and out, so a caller editing a payload never alters what the
// next request reads.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache returns a cache whose entries live for ttl unless Set
// overrides it. Expired entries are swept every sweep interval.
func NewMemoryCache(ttl, sweep time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, sweep)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	payload, ok := v.([]byte)
	if !ok {
		c.entries.Delete(key)
		return nil, false
	}
	return bytes.Clone(payload), true
}

// Set stores a copy of value. A zero ttl uses the cache default. Empty
// payloads are refused, an encoded result is never empty.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if len(value) == 0 {
		return fmt.Errorf("cache %s: empty payload", key)
	}
	c.entries.Set(key, bytes.Clone(value), ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}

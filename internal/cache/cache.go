package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ppiankov/fracheck/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyPrefix versions cached entries. Bump it when the result format changes.
const keyPrefix = "fracheck:v1:"

// ResultKey generates a cache key for a validation request. The same body
// validated as another claim type or under another document name gets a
// different key.
func ResultKey(body []byte, docType, sourceDoc string) string {
	h := sha256.New()
	h.Write(body)
	h.Write([]byte{0})
	h.Write([]byte(docType))
	h.Write([]byte{0})
	h.Write([]byte(sourceDoc))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg: memory only when no directory is
// set, memory over disk otherwise. A disabled cache returns nil.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// GetResult reads a cached validation result. Undecodable entries count as
// misses.
func GetResult(c Cache, key string) (*model.ValidationResult, bool) {
	if c == nil {
		return nil, false
	}
	data, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	var res model.ValidationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}
	return &res, true
}

// SetResult stores a validation result with the cache's default TTL
func SetResult(c Cache, key string, res *model.ValidationResult) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.Set(key, data, 0)
}

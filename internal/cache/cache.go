package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Cache defines the operations the filter pipeline needs from a cache.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
	Size() int
}

// MemoryCache is an in-memory cache with TTL support and a hard item cap.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*item
	maxSize int
}

type item struct {
	value      interface{}
	expiration time.Time
}

// NewMemoryCache creates a memory cache holding at most maxSize items.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		items:   make(map[string]*item),
		maxSize: maxSize,
	}
}

// Get returns a value if present and unexpired.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expiration) {
		c.Delete(key)
		return nil, false
	}
	return it.value, true
}

// Set stores a value with the given TTL, evicting the item closest to
// expiry when full.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = &item{value: value, expiration: time.Now().Add(ttl)}
}

func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, it := range c.items {
		if oldestKey == "" || it.expiration.Before(oldest) {
			oldestKey = key
			oldest = it.expiration
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// Delete removes a key.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes everything.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*item)
}

// Size returns the current item count.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// FilterCache fronts repeated identical filter passes. Keys hash the
// whole filter request together with a dataset generation counter, so any
// mutation of the underlying entries invalidates every prior result
// without explicit bookkeeping.
type FilterCache struct {
	cache Cache
	ttl   time.Duration
}

// NewFilterCache wraps a cache with a fixed TTL for filter results.
func NewFilterCache(cache Cache, ttl time.Duration) *FilterCache {
	return &FilterCache{cache: cache, ttl: ttl}
}

// Key derives a stable cache key from an arbitrary request value and the
// dataset generation it was computed against.
func (fc *FilterCache) Key(generation uint64, request interface{}) string {
	data, err := json.Marshal(request)
	if err != nil {
		return ""
	}
	h := sha256.New()
	h.Write(data)
	var gen [8]byte
	for i := 0; i < 8; i++ {
		gen[i] = byte(generation >> (8 * i))
	}
	h.Write(gen[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Get fetches a cached filter result. An empty key never hits.
func (fc *FilterCache) Get(key string) (interface{}, bool) {
	if key == "" {
		return nil, false
	}
	return fc.cache.Get(key)
}

// Set stores a filter result under the derived key.
func (fc *FilterCache) Set(key string, value interface{}) {
	if key == "" {
		return
	}
	fc.cache.Set(key, value, fc.ttl)
}

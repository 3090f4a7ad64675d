package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
)

// ResultCache memoizes pipeline results by input fingerprint
type ResultCache struct {
	data    map[uint64]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once

	hits        atomic.Int64
	misses      atomic.Int64
	lastCleanup atomic.Int64
}

// cacheEntry represents a cache entry with expiration
type cacheEntry struct {
	value      interface{}
	expiration time.Time
}

// Stats reports cache usage
type Stats struct {
	Size        int       `json:"size"`
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRate     float64   `json:"hit_rate"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// New creates a cache whose entries live for ttl. Expired entries are swept
// every cleanupInterval until Stop is called.
func New(ttl, cleanupInterval time.Duration) *ResultCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &ResultCache{
		data:    make(map[uint64]*cacheEntry),
		ttl:     ttl,
		cleanup: time.NewTicker(cleanupInterval),
		done:    make(chan struct{}),
	}
	c.lastCleanup.Store(time.Now().UnixNano())

	go c.cleanupLoop()

	return c
}

// Fingerprint hashes the JSON encoding of parts into a cache key
func Fingerprint(parts ...interface{}) (uint64, error) {
	d := xxhash.New()
	for _, part := range parts {
		b, err := json.Marshal(part)
		if err != nil {
			return 0, fmt.Errorf("failed to encode fingerprint part: %w", err)
		}
		d.Write(b)
		d.Write([]byte{0})
	}
	return d.Sum64(), nil
}

// Get retrieves a live value and records a hit or miss
func (c *ResultCache) Get(key uint64) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiration) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.value, true
}

// Set stores a value with the cache's TTL
func (c *ResultCache) Set(key uint64, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// GetOrSet returns the cached value for key, computing and storing it on a
// miss. The boolean reports whether the value came from the cache.
func (c *ResultCache) GetOrSet(key uint64, compute func() (interface{}, error)) (interface{}, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}

	value, err := compute()
	if err != nil {
		return nil, false, err
	}

	c.Set(key, value)
	return value, false, nil
}

// Delete removes a value from the cache
func (c *ResultCache) Delete(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Clear removes all entries from the cache
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[uint64]*cacheEntry)
}

// Size returns the number of entries in the cache, expired or not
func (c *ResultCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

// Stats returns cache statistics
func (c *ResultCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:        c.Size(),
		Hits:        hits,
		Misses:      misses,
		HitRate:     hitRate,
		LastCleanup: time.Unix(0, c.lastCleanup.Load()),
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *ResultCache) Stop() {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}

// cleanupLoop periodically removes expired entries
func (c *ResultCache) cleanupLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *ResultCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
	c.lastCleanup.Store(now.UnixNano())
}

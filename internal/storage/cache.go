// cache.go - OCR reading cache

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// CachedReading is the raw OCR text recognized for one image.
// Extraction results are never cached; parsing reruns on every hit.
type CachedReading struct {
	RawText    string    `bson:"raw_text" json:"raw_text"`
	Confidence float64   `bson:"confidence" json:"confidence"`
	Provider   string    `bson:"provider" json:"provider"`
	CachedAt   time.Time `bson:"cached_at" json:"cached_at"`
}

// ReadingCache stores OCR readings keyed by image identity.
type ReadingCache interface {
	Get(ctx context.Context, key string) (*CachedReading, bool, error)
	Put(ctx context.Context, key string, reading CachedReading) error
}

// CacheKeyForURL keys a remote screenshot by its URL.
func CacheKeyForURL(url string) string {
	return "url:" + url
}

// CacheKeyForContent keys an uploaded screenshot by the sha256 of its bytes.
func CacheKeyForContent(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// DefaultMaxMemoryEntries caps MemoryReadingCache; the entry expiring soonest is dropped first.
const DefaultMaxMemoryEntries = 10000

// maxSweepInterval bounds how long expired entries can linger between sweeps.
const maxSweepInterval = 10 * time.Minute

type memoryEntry struct {
	reading CachedReading
	expires time.Time
}

// MemoryReadingCache is an in-process ReadingCache with a fixed TTL and a size cap.
// Expired entries are swept on Put.
type MemoryReadingCache struct {
	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
	entries    map[string]memoryEntry
	mu         sync.RWMutex
}

// NewMemoryReadingCache creates a cache whose entries expire after ttl.
func NewMemoryReadingCache(ttl time.Duration) *MemoryReadingCache {
	sweepEvery := ttl
	if sweepEvery <= 0 || sweepEvery > maxSweepInterval {
		sweepEvery = maxSweepInterval
	}
	return &MemoryReadingCache{
		ttl:        ttl,
		maxEntries: DefaultMaxMemoryEntries,
		sweepEvery: sweepEvery,
		lastSweep:  time.Now(),
		now:        time.Now,
		entries:    make(map[string]memoryEntry),
	}
}

// Get returns the cached reading for key if present and not expired.
func (c *MemoryReadingCache) Get(_ context.Context, key string) (*CachedReading, bool, error) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		// Double-check after acquiring write lock
		if current, ok := c.entries[key]; ok && !c.now().Before(current.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	reading := entry.reading
	return &reading, true, nil
}

// Put stores reading under key.
func (c *MemoryReadingCache) Put(_ context.Context, key string, reading CachedReading) error {
	if reading.CachedAt.IsZero() {
		reading.CachedAt = c.now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.sweepEvery {
		c.removeExpired(now)
	}
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.removeExpired(now)
		if len(c.entries) >= c.maxEntries {
			c.evictSoonest()
		}
	}
	c.entries[key] = memoryEntry{reading: reading, expires: now.Add(c.ttl)}
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (c *MemoryReadingCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpired(c.now())
}

// removeExpired deletes entries expired at now. Caller holds mu.
func (c *MemoryReadingCache) removeExpired(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	c.lastSweep = now
	return removed
}

// evictSoonest drops the entry closest to expiry. Caller holds mu.
func (c *MemoryReadingCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for key, entry := range c.entries {
		if victim == "" || entry.expires.Before(soonest) {
			victim, soonest = key, entry.expires
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryReadingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all cached readings
func (c *MemoryReadingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

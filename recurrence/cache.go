package recurrence

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// cacheEntry represents a cached expansion result.
type cacheEntry struct {
	result     []time.Time
	expiresAt  time.Time
	accessedAt time.Time
}

// expansionCache memoizes occurrence expansion results. Keys cover every
// input of OccurrencesCapped, so a hit is always semantically identical to a
// fresh expansion.
type expansionCache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// CacheConfig holds configuration for the expansion cache.
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

func newExpansionCache(config CacheConfig) *expansionCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &expansionCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey hashes every expansion input. Fields are NUL separated and the
// nil range end gets its own marker, so adjacent fields cannot run together
// and alias another input combination.
func cacheKey(start time.Time, rangeEnd *time.Time, ruleText string, maxOccurrences int) string {
	hasher := sha256.New()
	hasher.Write([]byte(start.Format(time.RFC3339Nano)))
	hasher.Write([]byte{0})
	if rangeEnd != nil {
		hasher.Write([]byte{1})
		hasher.Write([]byte(rangeEnd.Format(time.RFC3339Nano)))
	} else {
		hasher.Write([]byte{0})
	}
	hasher.Write([]byte{0})
	hasher.Write([]byte(ruleText))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(maxOccurrences)))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached expansion if it exists and hasn't expired. The
// returned slice is a copy; callers may mutate it freely.
func (c *expansionCache) Get(start time.Time, rangeEnd *time.Time, ruleText string, maxOccurrences int) ([]time.Time, bool) {
	key := cacheKey(start, rangeEnd, ruleText, maxOccurrences)

	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.entries, key)
		c.mutex.Unlock()
		return nil, false
	}

	c.mutex.Lock()
	entry.accessedAt = now
	result := make([]time.Time, len(entry.result))
	copy(result, entry.result)
	c.mutex.Unlock()

	return result, true
}

// Set stores an expansion result in the cache.
func (c *expansionCache) Set(start time.Time, rangeEnd *time.Time, ruleText string, maxOccurrences int, result []time.Time) {
	key := cacheKey(start, rangeEnd, ruleText, maxOccurrences)
	now := time.Now()

	stored := make([]time.Time, len(result))
	copy(stored, result)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &cacheEntry{
		result:     stored,
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries and the least recently accessed entries
// when over the limit. Caller must hold the write lock.
func (c *expansionCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	for len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldestAccess time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.accessedAt.Before(oldestAccess) {
				oldestKey = key
				oldestAccess = entry.accessedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

func (c *expansionCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache.
func (c *expansionCache) Close() {
	close(c.stopCleanup)
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics.
func (c *expansionCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := CacheStats{TotalEntries: len(c.entries)}
	now := time.Now()
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			stats.ExpiredEntries++
		}
	}
	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries

	return stats
}

// CacheStats provides information about cache usage.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}

package classifier

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

// cacheEntry represents a cached extraction response.
type cacheEntry struct {
	expiry   time.Time
	response *service.ExtractionResponse
}

// extractionCache provides thread-safe caching of extraction responses
// keyed by a hash of the cleaned statement text.
type extractionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newExtractionCache creates a new cache with the specified TTL.
func newExtractionCache(ttl time.Duration) *extractionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &extractionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// textKey hashes cleaned statement text into a cache key.
func textKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

// get retrieves a response from the cache if it exists and hasn't expired.
func (c *extractionCache) get(key string) (*service.ExtractionResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return nil, false
	}
	return entry.response, true
}

// set stores a response in the cache.
func (c *extractionCache) set(key string, response *service.ExtractionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		response: response,
		expiry:   time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *extractionCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *extractionCache) Close() {
	close(c.stopCh)
}

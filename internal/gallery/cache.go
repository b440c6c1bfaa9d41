package gallery

import (
	"sync"
	"time"

	"filmarchive/internal/models"
)

// recordCache holds one snapshot of the full catalog with a TTL, so browsing
// and search traffic does not hit the database per request. Writes through
// the gallery invalidate it.
type recordCache struct {
	mu        sync.RWMutex
	records   []*models.ImageRecord
	fetchedAt time.Time
	ttl       time.Duration
}

func newRecordCache(ttl time.Duration) *recordCache {
	return &recordCache{ttl: ttl}
}

// Get returns the cached snapshot, or nil when empty or expired.
func (c *recordCache) Get() []*models.ImageRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.records == nil || time.Since(c.fetchedAt) > c.ttl {
		return nil
	}
	return c.records
}

func (c *recordCache) Set(records []*models.ImageRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = records
	c.fetchedAt = time.Now()
}

func (c *recordCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = nil
}

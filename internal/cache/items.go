// Package cache holds the in-memory recommendation caches: per-user
// provider items, ended-series records, and the global series/season
// inventory with its synchronization protocol. Nothing here is durable;
// every cache rebuilds from upstream after a restart.
package cache

import (
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/watchnext/watchnext/internal/media"
)

// DefaultItemTTL is how long a provider's cached items stay fresh.
const DefaultItemTTL = 6 * time.Hour

const keySep = "|"

// cachedSet wraps one provider's items for one user. Sets are replaced
// wholesale on every sync, never merged.
type cachedSet struct {
	items    []media.Item
	cachedAt time.Time
}

// ItemCache is a TTL cache of recommendation items keyed by
// (userID, provider). Safe for concurrent use; expired entries are
// evicted lazily on read.
type ItemCache struct {
	ttl     time.Duration
	entries cmap.ConcurrentMap[string, cachedSet]
	now     func() time.Time
}

// NewItemCache creates an item cache. A non-positive ttl selects
// DefaultItemTTL.
func NewItemCache(ttl time.Duration) *ItemCache {
	if ttl <= 0 {
		ttl = DefaultItemTTL
	}
	return &ItemCache{
		ttl:     ttl,
		entries: cmap.New[cachedSet](),
		now:     time.Now,
	}
}

func itemKey(userID, provider string) string {
	return userID + keySep + provider
}

// Get returns the cached items for the user and provider. A miss or an
// expired entry yields an empty slice, never an error.
func (c *ItemCache) Get(userID, provider string) []media.Item {
	key := itemKey(userID, provider)
	set, ok := c.entries.Get(key)
	if !ok {
		return nil
	}
	if c.expired(set) {
		c.entries.Remove(key)
		return nil
	}
	return set.items
}

// Put atomically replaces the cached items for the user and provider.
func (c *ItemCache) Put(userID, provider string, items []media.Item) {
	c.entries.Set(itemKey(userID, provider), cachedSet{
		items:    items,
		cachedAt: c.now(),
	})
}

// AllForUser returns every non-expired provider set for the user.
func (c *ItemCache) AllForUser(userID string) map[string][]media.Item {
	prefix := userID + keySep
	result := make(map[string][]media.Item)
	for key, set := range c.entries.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if c.expired(set) {
			c.entries.Remove(key)
			continue
		}
		result[strings.TrimPrefix(key, prefix)] = set.items
	}
	return result
}

// InvalidateUser removes every entry belonging to the user.
func (c *ItemCache) InvalidateUser(userID string) {
	prefix := userID + keySep
	for key := range c.entries.Items() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}

// InvalidateAll drops the whole cache.
func (c *ItemCache) InvalidateAll() {
	c.entries.Clear()
}

// Len returns the number of cached sets, including not-yet-evicted
// expired ones.
func (c *ItemCache) Len() int {
	return c.entries.Count()
}

func (c *ItemCache) expired(set cachedSet) bool {
	return c.now().Sub(set.cachedAt) > c.ttl
}

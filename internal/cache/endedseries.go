package cache

import (
	"strconv"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/watchnext/watchnext/internal/media"
)

// DefaultEndedTTL is how long an ended-series record is trusted.
// Ended series change rarely, so a coarse TTL avoids re-querying
// upstream for shows that will never have new seasons.
const DefaultEndedTTL = 7 * 24 * time.Hour

// EndedSeriesRecord marks a series as ended or canceled.
type EndedSeriesRecord struct {
	Title             string
	Year              int
	IDs               media.IDs
	Status            string
	Genres            []string
	LastWatchedSeason int
	CachedAt          time.Time
}

// EndedSeriesCache is a global long-TTL cache of ended/canceled series,
// keyed by TVDB ID. Safe for concurrent use.
type EndedSeriesCache struct {
	ttl     time.Duration
	records cmap.ConcurrentMap[string, EndedSeriesRecord]
	now     func() time.Time
}

// NewEndedSeriesCache creates an ended-series cache. A non-positive ttl
// selects DefaultEndedTTL.
func NewEndedSeriesCache(ttl time.Duration) *EndedSeriesCache {
	if ttl <= 0 {
		ttl = DefaultEndedTTL
	}
	return &EndedSeriesCache{
		ttl:     ttl,
		records: cmap.New[EndedSeriesRecord](),
		now:     time.Now,
	}
}

func tvdbKey(tvdbID int64) string {
	return strconv.FormatInt(tvdbID, 10)
}

// IsEnded reports whether the series has a live ended record.
func (c *EndedSeriesCache) IsEnded(tvdbID int64) bool {
	_, ok := c.Get(tvdbID)
	return ok
}

// Get returns the record for a series, evicting it first if its age
// exceeds the TTL.
func (c *EndedSeriesCache) Get(tvdbID int64) (EndedSeriesRecord, bool) {
	key := tvdbKey(tvdbID)
	rec, ok := c.records.Get(key)
	if !ok {
		return EndedSeriesRecord{}, false
	}
	if c.now().Sub(rec.CachedAt) > c.ttl {
		c.records.Remove(key)
		return EndedSeriesRecord{}, false
	}
	return rec, true
}

// MarkEnded upserts a record keyed by the series' TVDB ID. Series
// without that ID are ignored: TVDB is the join key the rest of the
// system depends on.
func (c *EndedSeriesCache) MarkEnded(rec EndedSeriesRecord) {
	if rec.IDs.TVDB == 0 {
		return
	}
	rec.CachedAt = c.now()
	c.records.Set(tvdbKey(rec.IDs.TVDB), rec)
}

// Remove drops the record for a series, e.g. when it is renewed after a
// cancellation.
func (c *EndedSeriesCache) Remove(tvdbID int64) {
	c.records.Remove(tvdbKey(tvdbID))
}

// SweepExpired evicts every expired record and returns how many were
// removed. Called once per sync cycle to bound memory.
func (c *EndedSeriesCache) SweepExpired() int {
	removed := 0
	cutoff := c.now().Add(-c.ttl)
	for key, rec := range c.records.Items() {
		if rec.CachedAt.Before(cutoff) {
			c.records.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of records currently held.
func (c *EndedSeriesCache) Len() int {
	return c.records.Count()
}

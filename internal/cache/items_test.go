package cache

import (
	"testing"
	"time"

	"github.com/watchnext/watchnext/internal/media"
)

func movieItem(traktID int64, title string) media.Item {
	return media.Item{
		Kind:  media.KindMovie,
		Title: title,
		IDs:   media.IDs{Trakt: traktID},
	}
}

func TestItemCacheGetMiss(t *testing.T) {
	c := NewItemCache(time.Hour)
	if items := c.Get("alice", "trakt-movies"); len(items) != 0 {
		t.Errorf("expected empty result on miss, got %d items", len(items))
	}
}

func TestItemCachePutGet(t *testing.T) {
	c := NewItemCache(time.Hour)
	c.Put("alice", "trakt-movies", []media.Item{movieItem(1, "a"), movieItem(2, "b")})

	items := c.Get("alice", "trakt-movies")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "a" || items[1].Title != "b" {
		t.Errorf("order not preserved: %v", items)
	}
}

func TestItemCacheTTL(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewItemCache(6 * time.Hour)
	c.now = func() time.Time { return now }

	c.Put("alice", "trakt-movies", []media.Item{movieItem(1, "a")})

	now = base.Add(6*time.Hour - time.Second)
	if items := c.Get("alice", "trakt-movies"); len(items) != 1 {
		t.Errorf("entry expired before TTL: got %d items", len(items))
	}

	now = base.Add(6*time.Hour + time.Second)
	if items := c.Get("alice", "trakt-movies"); len(items) != 0 {
		t.Errorf("entry survived past TTL: got %d items", len(items))
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted lazily, Len = %d", c.Len())
	}
}

func TestItemCacheReplaceNotMerge(t *testing.T) {
	c := NewItemCache(time.Hour)
	c.Put("alice", "trakt-movies", []media.Item{movieItem(1, "a"), movieItem(2, "b")})
	c.Put("alice", "trakt-movies", []media.Item{movieItem(3, "c")})

	items := c.Get("alice", "trakt-movies")
	if len(items) != 1 || items[0].IDs.Trakt != 3 {
		t.Errorf("expected only the second set, got %v", items)
	}
}

func TestItemCacheInvalidateUser(t *testing.T) {
	c := NewItemCache(time.Hour)
	c.Put("alice", "trakt-movies", []media.Item{movieItem(1, "a")})
	c.Put("alice", "trakt-shows", []media.Item{movieItem(2, "b")})
	c.Put("bob", "trakt-movies", []media.Item{movieItem(3, "c")})

	c.InvalidateUser("alice")

	if items := c.Get("alice", "trakt-movies"); len(items) != 0 {
		t.Error("alice's movies survived invalidation")
	}
	if items := c.Get("alice", "trakt-shows"); len(items) != 0 {
		t.Error("alice's shows survived invalidation")
	}
	if items := c.Get("bob", "trakt-movies"); len(items) != 1 {
		t.Error("bob's entries were removed by alice's invalidation")
	}
}

func TestItemCacheAllForUser(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewItemCache(time.Hour)
	c.now = func() time.Time { return now }

	c.Put("alice", "trakt-movies", []media.Item{movieItem(1, "a")})
	now = base.Add(2 * time.Hour)
	c.Put("alice", "trakt-shows", []media.Item{movieItem(2, "b")})

	all := c.AllForUser("alice")
	if len(all) != 1 {
		t.Fatalf("expected 1 live provider set, got %d", len(all))
	}
	if _, ok := all["trakt-shows"]; !ok {
		t.Error("expected trakt-shows set to survive")
	}
}

func TestItemCacheInvalidateAll(t *testing.T) {
	c := NewItemCache(time.Hour)
	c.Put("alice", "trakt-movies", []media.Item{movieItem(1, "a")})
	c.Put("bob", "trakt-movies", []media.Item{movieItem(2, "b")})

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, Len = %d", c.Len())
	}
}

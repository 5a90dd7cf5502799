package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/trakt"
)

// cursorSkew is subtracted from "now" when advancing a sync cursor so a
// watch event landing on the boundary is not missed by the next pass.
const cursorSkew = time.Minute

// SeasonMetadata is the cached shape of one season.
type SeasonMetadata struct {
	Number        int
	EpisodeCount  int
	AiredEpisodes int
	FirstAired    *time.Time
	CachedAt      time.Time
}

// Complete reports whether every episode of the season has aired.
func (m SeasonMetadata) Complete() bool {
	return m.EpisodeCount > 0 && m.AiredEpisodes == m.EpisodeCount
}

// SeriesEntry is the global cached state of one series.
type SeriesEntry struct {
	Title         string
	Year          int
	IDs           media.IDs
	Status        string
	Genres        []string
	Seasons       map[int]SeasonMetadata
	FirstCachedAt time.Time
}

// Ended reports whether the cached status marks the series finished.
func (e SeriesEntry) Ended() bool {
	switch strings.ToLower(e.Status) {
	case "ended", "canceled":
		return true
	}
	return false
}

// SeriesProgress pairs a cached series with one user's highest watched
// season.
type SeriesProgress struct {
	Entry          SeriesEntry
	HighestWatched int
}

// SeriesAPI is the slice of the upstream client the progress cache needs.
type SeriesAPI interface {
	WatchedShows(ctx context.Context, userID string) ([]trakt.WatchedShow, error)
	ShowSeasons(ctx context.Context, userID string, showID int64) ([]trakt.Season, error)
	WatchHistory(ctx context.Context, userID string, start, end time.Time) ([]trakt.HistoryEvent, error)
}

// SeriesProgressCache keeps a global per-series season inventory and a
// per-user watched-season progress map, refreshed through a
// full/incremental synchronization protocol against the upstream API.
type SeriesProgressCache struct {
	api    SeriesAPI
	ended  *EndedSeriesCache
	logger zerolog.Logger

	series   cmap.ConcurrentMap[string, SeriesEntry] // TVDB ID -> entry
	progress cmap.ConcurrentMap[string, int]         // userID|tvdbID -> season
	cursors  cmap.ConcurrentMap[string, time.Time]   // userID -> watermark

	group singleflight.Group
	now   func() time.Time
}

// NewSeriesProgressCache creates the progress cache.
func NewSeriesProgressCache(api SeriesAPI, ended *EndedSeriesCache, logger zerolog.Logger) *SeriesProgressCache {
	return &SeriesProgressCache{
		api:      api,
		ended:    ended,
		logger:   logger.With().Str("component", "seriescache").Logger(),
		series:   cmap.New[SeriesEntry](),
		progress: cmap.New[int](),
		cursors:  cmap.New[time.Time](),
		now:      time.Now,
	}
}

func progressKey(userID string, tvdbID int64) string {
	return userID + keySep + strconv.FormatInt(tvdbID, 10)
}

// SyncUser refreshes the season inventory and watched-season progress
// for one user, incrementally when a cursor exists and fully otherwise.
func (c *SeriesProgressCache) SyncUser(ctx context.Context, userID string) error {
	if _, ok := c.cursors.Get(userID); ok {
		return c.IncrementalSync(ctx, userID)
	}
	return c.FullSync(ctx, userID)
}

// FullSync re-derives the user's progress from the complete watched-shows
// snapshot. A failure fetching one series is logged and skipped; only a
// failure of the snapshot itself aborts the pass.
func (c *SeriesProgressCache) FullSync(ctx context.Context, userID string) error {
	shows, err := c.api.WatchedShows(ctx, userID)
	if err != nil {
		return err
	}

	c.logger.Debug().
		Str("user", userID).
		Int("shows", len(shows)).
		Msg("Running full series sync")

	for _, watched := range shows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tvdbID := watched.Show.IDs.TVDB
		if tvdbID == 0 {
			continue
		}

		// Progress first, so an ended record captures the season the
		// user is actually at.
		if highest := highestWatchedSeason(watched.Seasons); highest > 0 {
			c.UpdateUserProgress(userID, tvdbID, highest)
		}

		if err := c.CacheShowWithSeasons(ctx, userID, watched.Show); err != nil {
			c.logger.Warn().
				Err(err).
				Str("user", userID).
				Str("title", watched.Show.Title).
				Msg("Failed to cache seasons, skipping series")
			continue
		}
	}

	c.cursors.Set(userID, c.now().Add(-cursorSkew))
	return nil
}

// IncrementalSync processes only the watch events recorded since the
// user's cursor, touching just the series those events belong to. It
// falls back to a full sync when no cursor exists.
func (c *SeriesProgressCache) IncrementalSync(ctx context.Context, userID string) error {
	cursor, ok := c.cursors.Get(userID)
	if !ok {
		return c.FullSync(ctx, userID)
	}

	end := c.now().Add(-cursorSkew)
	events, err := c.api.WatchHistory(ctx, userID, cursor, end)
	if err != nil {
		return err
	}

	type touched struct {
		show      trakt.Show
		maxSeason int
	}
	byShow := make(map[int64]*touched)
	for _, evt := range events {
		if evt.Show == nil || evt.Episode == nil {
			continue
		}
		tvdbID := evt.Show.IDs.TVDB
		if tvdbID == 0 || evt.Episode.Season <= 0 {
			continue
		}
		entry, ok := byShow[tvdbID]
		if !ok {
			entry = &touched{show: *evt.Show}
			byShow[tvdbID] = entry
		}
		if evt.Episode.Season > entry.maxSeason {
			entry.maxSeason = evt.Episode.Season
		}
	}

	c.logger.Debug().
		Str("user", userID).
		Int("events", len(events)).
		Int("series", len(byShow)).
		Msg("Running incremental series sync")

	for tvdbID, entry := range byShow {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.UpdateUserProgress(userID, tvdbID, entry.maxSeason)
		if err := c.CacheShowWithSeasons(ctx, userID, entry.show); err != nil {
			c.logger.Warn().
				Err(err).
				Str("user", userID).
				Str("title", entry.show.Title).
				Msg("Failed to cache seasons, skipping series")
			continue
		}
	}

	c.cursors.Set(userID, end)
	return nil
}

// CacheShowWithSeasons applies the season caching policy to one series:
// ended/canceled series cache every season unconditionally, ongoing
// series cache only complete seasons, and series metadata is refreshed
// in all cases. Series already marked ended skip the upstream season
// fetch entirely; a renewed series drops its ended record and refetches.
func (c *SeriesProgressCache) CacheShowWithSeasons(ctx context.Context, userID string, show trakt.Show) error {
	tvdbID := show.IDs.TVDB
	ended := show.Ended()

	if _, known := c.ended.Get(tvdbID); known {
		if ended {
			c.updateSeriesMeta(show, nil)
			return nil
		}
		c.ended.Remove(tvdbID)
	}

	key := strconv.FormatInt(show.IDs.Trakt, 10)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.api.ShowSeasons(ctx, userID, show.IDs.Trakt)
	})
	if err != nil {
		return err
	}
	seasons := v.([]trakt.Season)

	cacheable := make([]SeasonMetadata, 0, len(seasons))
	for _, season := range seasons {
		if season.Number <= 0 {
			continue
		}
		meta := SeasonMetadata{
			Number:        season.Number,
			EpisodeCount:  season.EpisodeCount,
			AiredEpisodes: season.AiredEpisodes,
			FirstAired:    season.FirstAired,
			CachedAt:      c.now(),
		}
		// An ongoing season's episode counts are provisional until it
		// finishes airing; caching a partial snapshot would corrupt the
		// next-season decision.
		if !ended && !meta.Complete() {
			continue
		}
		cacheable = append(cacheable, meta)
	}

	c.updateSeriesMeta(show, cacheable)

	if ended {
		highest, _ := c.HighestWatched(userID, tvdbID)
		c.ended.MarkEnded(EndedSeriesRecord{
			Title:             show.Title,
			Year:              show.Year,
			IDs:               mediaIDs(show.IDs),
			Status:            show.Status,
			Genres:            show.Genres,
			LastWatchedSeason: highest,
		})
	}
	return nil
}

// updateSeriesMeta refreshes a series entry, merging newly cacheable
// seasons over the existing season map. The stored entry's season map is
// never mutated after publication: readers hold the map pointer outside
// the shard lock, so the merge builds a fresh map every time.
func (c *SeriesProgressCache) updateSeriesMeta(show trakt.Show, seasons []SeasonMetadata) {
	key := tvdbKey(show.IDs.TVDB)
	c.series.Upsert(key, SeriesEntry{}, func(exist bool, current, _ SeriesEntry) SeriesEntry {
		entry := current
		if !exist {
			entry.FirstCachedAt = c.now()
		}
		merged := make(map[int]SeasonMetadata, len(current.Seasons)+len(seasons))
		for n, meta := range current.Seasons {
			merged[n] = meta
		}
		for _, meta := range seasons {
			merged[meta.Number] = meta
		}
		entry.Seasons = merged
		entry.Title = show.Title
		entry.Year = show.Year
		entry.IDs = mediaIDs(show.IDs)
		entry.Status = show.Status
		entry.Genres = show.Genres
		return entry
	})
}

// UpdateUserProgress raises the user's highest watched season for a
// series. Updates are monotonic: a lower value never replaces a higher.
func (c *SeriesProgressCache) UpdateUserProgress(userID string, tvdbID int64, season int) {
	if tvdbID == 0 || season <= 0 {
		return
	}
	c.progress.Upsert(progressKey(userID, tvdbID), season, func(exist bool, current, incoming int) int {
		if exist && current > incoming {
			return current
		}
		return incoming
	})
}

// HighestWatched returns the user's highest watched season for a series.
func (c *SeriesProgressCache) HighestWatched(userID string, tvdbID int64) (int, bool) {
	return c.progress.Get(progressKey(userID, tvdbID))
}

// CachedSeries returns a copy of the cached entry for a series.
func (c *SeriesProgressCache) CachedSeries(tvdbID int64) (SeriesEntry, bool) {
	entry, ok := c.series.Get(tvdbKey(tvdbID))
	if !ok {
		return SeriesEntry{}, false
	}
	return copyEntry(entry), true
}

// CachedSeason returns the cached metadata for one season.
func (c *SeriesProgressCache) CachedSeason(tvdbID int64, season int) (SeasonMetadata, bool) {
	entry, ok := c.series.Get(tvdbKey(tvdbID))
	if !ok {
		return SeasonMetadata{}, false
	}
	meta, ok := entry.Seasons[season]
	return meta, ok
}

// IsSeasonAvailable reports whether a season is cached and has started
// airing.
func (c *SeriesProgressCache) IsSeasonAvailable(tvdbID int64, season int) bool {
	meta, ok := c.CachedSeason(tvdbID, season)
	return ok && meta.AiredEpisodes > 0
}

// SeriesWithProgress returns every cached series the user has progress
// for, paired with the highest watched season.
func (c *SeriesProgressCache) SeriesWithProgress(userID string) []SeriesProgress {
	prefix := userID + keySep
	var result []SeriesProgress
	for key, highest := range c.progress.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		tvdbID, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			continue
		}
		entry, ok := c.series.Get(tvdbKey(tvdbID))
		if !ok {
			continue
		}
		result = append(result, SeriesProgress{
			Entry:          copyEntry(entry),
			HighestWatched: highest,
		})
	}
	return result
}

// RemoveSeries drops a series and every user's progress against it.
func (c *SeriesProgressCache) RemoveSeries(tvdbID int64) {
	c.series.Remove(tvdbKey(tvdbID))
	suffix := keySep + strconv.FormatInt(tvdbID, 10)
	for key := range c.progress.Items() {
		if strings.HasSuffix(key, suffix) {
			c.progress.Remove(key)
		}
	}
}

// Clear drops all cached series, progress, and cursors.
func (c *SeriesProgressCache) Clear() {
	c.series.Clear()
	c.progress.Clear()
	c.cursors.Clear()
}

// SeriesCount returns the number of cached series.
func (c *SeriesProgressCache) SeriesCount() int {
	return c.series.Count()
}

// ProgressCount returns the number of (user, series) progress entries.
func (c *SeriesProgressCache) ProgressCount() int {
	return c.progress.Count()
}

// HasCursor reports whether the user has completed at least one sync
// this process lifetime.
func (c *SeriesProgressCache) HasCursor(userID string) bool {
	_, ok := c.cursors.Get(userID)
	return ok
}

// highestWatchedSeason returns the highest season with at least one
// watched episode, excluding season 0 specials.
func highestWatchedSeason(seasons []trakt.WatchedSeason) int {
	highest := 0
	for _, season := range seasons {
		if season.Number > highest && len(season.Episodes) > 0 {
			highest = season.Number
		}
	}
	return highest
}

func mediaIDs(ids trakt.IDs) media.IDs {
	return media.IDs{
		Trakt: ids.Trakt,
		IMDB:  ids.IMDB,
		TVDB:  ids.TVDB,
		TMDB:  ids.TMDB,
	}
}

func copyEntry(entry SeriesEntry) SeriesEntry {
	seasons := make(map[int]SeasonMetadata, len(entry.Seasons))
	for n, meta := range entry.Seasons {
		seasons[n] = meta
	}
	entry.Seasons = seasons
	return entry
}

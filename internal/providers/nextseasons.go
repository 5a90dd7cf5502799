package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/cache"
	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/library"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/trakt"
)

type seasonsFetcher interface {
	ShowSeasons(ctx context.Context, userID string, showID int64) ([]trakt.Season, error)
}

// NextSeasons recommends, per watched series, the single next season
// the user has not acquired yet. The decision is recomputed fresh each
// cycle against the series cache and the local inventory; nothing is
// memoized between cycles.
type NextSeasons struct {
	progress *cache.SeriesProgressCache
	api      seasonsFetcher
	library  library.Lookup
	cfg      *config.Config
	logger   zerolog.Logger
	now      func() time.Time
}

// NewNextSeasons creates the next-season provider.
func NewNextSeasons(progress *cache.SeriesProgressCache, api seasonsFetcher, lookup library.Lookup, cfg *config.Config, logger zerolog.Logger) *NextSeasons {
	return &NextSeasons{
		progress: progress,
		api:      api,
		library:  lookup,
		cfg:      cfg,
		logger:   logger.With().Str("component", "provider").Str("provider", NameNextSeasons).Logger(),
		now:      time.Now,
	}
}

func (p *NextSeasons) Name() string { return NameNextSeasons }

func (p *NextSeasons) EnabledFor(userID string) bool {
	return p.cfg.ProviderEnabled(userID, NameNextSeasons)
}

// Fetch refreshes the user's series progress (full or incremental,
// decided by the cache) and derives the acquirable next seasons.
func (p *NextSeasons) Fetch(ctx context.Context, userID string) ([]media.Item, error) {
	if err := p.progress.SyncUser(ctx, userID); err != nil {
		return nil, err
	}

	var items []media.Item
	now := p.now()
	for _, sp := range p.progress.SeriesWithProgress(userID) {
		tvdbID := sp.Entry.IDs.TVDB
		if tvdbID == 0 || sp.HighestWatched <= 0 {
			continue
		}

		next := sp.HighestWatched + 1

		// Strictly the next season, and only once it has started
		// airing. Seasons beyond next are never suggested, even when
		// they are also missing.
		released, err := p.seasonReleased(ctx, userID, sp.Entry, next)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("user", userID).
				Str("title", sp.Entry.Title).
				Msg("Season verification failed, skipping series")
			continue
		}
		if !released {
			continue
		}

		exists, err := p.library.SeasonExists(ctx, tvdbID, next)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("user", userID).
				Str("title", sp.Entry.Title).
				Msg("Inventory lookup failed, skipping series")
			continue
		}
		if exists {
			continue
		}

		items = append(items, media.Item{
			Kind:     media.KindShow,
			Title:    sp.Entry.Title,
			Year:     sp.Entry.Year,
			IDs:      sp.Entry.IDs,
			Provider: NameNextSeasons,
			Season:   next,
			Genres:   sp.Entry.Genres,
			AddedAt:  now,
		})
	}
	return items, nil
}

// seasonReleased reports whether the season has started airing. The
// cache answers for complete and ended-series seasons; for an ongoing
// series whose next season is not cached yet, the season may still be
// mid-air (provisional episode counts are deliberately not cached), so
// it is verified against upstream.
func (p *NextSeasons) seasonReleased(ctx context.Context, userID string, entry cache.SeriesEntry, season int) (bool, error) {
	if p.progress.IsSeasonAvailable(entry.IDs.TVDB, season) {
		return true, nil
	}
	if entry.Ended() {
		// Ended series cache every season; absence means it does not exist.
		return false, nil
	}

	seasons, err := p.api.ShowSeasons(ctx, userID, entry.IDs.Trakt)
	if err != nil {
		return false, err
	}
	for _, s := range seasons {
		if s.Number == season {
			return s.AiredEpisodes > 0, nil
		}
	}
	return false, nil
}

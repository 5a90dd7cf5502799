// Package providers contains the recommendation providers registered
// with the sync service. Each provider turns one upstream feed into
// content items; the next-seasons provider additionally embeds the
// season decision algorithm.
package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/trakt"
)

// Provider names double as cache keys; changing one invalidates the
// corresponding cached sets on the next sync.
const (
	NameMovies      = "trakt-movies"
	NameShows       = "trakt-shows"
	NameTrending    = "trakt-trending"
	NameNextSeasons = "next-seasons"
)

type movieRecommender interface {
	MovieRecommendations(ctx context.Context, userID string, ignoreCollected, ignoreWatchlisted bool, limit int) ([]trakt.Movie, error)
}

// Movies recommends personalized movies from upstream.
type Movies struct {
	api    movieRecommender
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewMovies creates the movie recommendation provider.
func NewMovies(api movieRecommender, cfg *config.Config, logger zerolog.Logger) *Movies {
	return &Movies{
		api:    api,
		cfg:    cfg,
		logger: logger.With().Str("component", "provider").Str("provider", NameMovies).Logger(),
		now:    time.Now,
	}
}

func (p *Movies) Name() string { return NameMovies }

func (p *Movies) EnabledFor(userID string) bool {
	return p.cfg.ProviderEnabled(userID, NameMovies)
}

func (p *Movies) Fetch(ctx context.Context, userID string) ([]media.Item, error) {
	opts := p.cfg.Providers
	movies, err := p.api.MovieRecommendations(ctx, userID, opts.IgnoreCollected, opts.IgnoreWatchlisted, opts.MovieLimit)
	if err != nil {
		return nil, err
	}
	return movieItems(movies, NameMovies, p.now()), nil
}

// movieItems converts upstream movies, dropping any without a primary
// catalog ID since they cannot be addressed later.
func movieItems(movies []trakt.Movie, provider string, addedAt time.Time) []media.Item {
	items := make([]media.Item, 0, len(movies))
	for _, m := range movies {
		if m.IDs.Trakt == 0 {
			continue
		}
		items = append(items, media.Item{
			Kind:     media.KindMovie,
			Title:    m.Title,
			Year:     m.Year,
			Provider: provider,
			Genres:   m.Genres,
			AddedAt:  addedAt,
			IDs: media.IDs{
				Trakt: m.IDs.Trakt,
				IMDB:  m.IDs.IMDB,
				TVDB:  m.IDs.TVDB,
				TMDB:  m.IDs.TMDB,
			},
		})
	}
	return items
}

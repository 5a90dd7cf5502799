package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/trakt"
)

type showRecommender interface {
	ShowRecommendations(ctx context.Context, userID string, ignoreCollected, ignoreWatchlisted bool, limit int) ([]trakt.Show, error)
}

// Shows recommends personalized shows from upstream.
type Shows struct {
	api    showRecommender
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewShows creates the show recommendation provider.
func NewShows(api showRecommender, cfg *config.Config, logger zerolog.Logger) *Shows {
	return &Shows{
		api:    api,
		cfg:    cfg,
		logger: logger.With().Str("component", "provider").Str("provider", NameShows).Logger(),
		now:    time.Now,
	}
}

func (p *Shows) Name() string { return NameShows }

func (p *Shows) EnabledFor(userID string) bool {
	return p.cfg.ProviderEnabled(userID, NameShows)
}

func (p *Shows) Fetch(ctx context.Context, userID string) ([]media.Item, error) {
	opts := p.cfg.Providers
	shows, err := p.api.ShowRecommendations(ctx, userID, opts.IgnoreCollected, opts.IgnoreWatchlisted, opts.ShowLimit)
	if err != nil {
		return nil, err
	}

	items := make([]media.Item, 0, len(shows))
	now := p.now()
	for _, s := range shows {
		if s.IDs.Trakt == 0 {
			continue
		}
		items = append(items, media.Item{
			Kind:     media.KindShow,
			Title:    s.Title,
			Year:     s.Year,
			Provider: NameShows,
			Genres:   s.Genres,
			AddedAt:  now,
			IDs: media.IDs{
				Trakt: s.IDs.Trakt,
				IMDB:  s.IDs.IMDB,
				TVDB:  s.IDs.TVDB,
				TMDB:  s.IDs.TMDB,
			},
		})
	}
	return items, nil
}

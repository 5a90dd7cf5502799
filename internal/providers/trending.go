package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/trakt"
)

type trendingAPI interface {
	TrendingMovies(ctx context.Context, userID string, limit int) ([]trakt.Movie, error)
}

// Trending surfaces the movies with the most current watchers.
type Trending struct {
	api    trendingAPI
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewTrending creates the trending movies provider.
func NewTrending(api trendingAPI, cfg *config.Config, logger zerolog.Logger) *Trending {
	return &Trending{
		api:    api,
		cfg:    cfg,
		logger: logger.With().Str("component", "provider").Str("provider", NameTrending).Logger(),
		now:    time.Now,
	}
}

func (p *Trending) Name() string { return NameTrending }

func (p *Trending) EnabledFor(userID string) bool {
	return p.cfg.ProviderEnabled(userID, NameTrending)
}

func (p *Trending) Fetch(ctx context.Context, userID string) ([]media.Item, error) {
	movies, err := p.api.TrendingMovies(ctx, userID, p.cfg.Providers.TrendingLimit)
	if err != nil {
		return nil, err
	}
	return movieItems(movies, NameTrending, p.now()), nil
}

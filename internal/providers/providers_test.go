package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/trakt"
)

type fakeRecommender struct {
	movies   []trakt.Movie
	shows    []trakt.Show
	trending []trakt.Movie
	err      error

	gotIgnoreCollected bool
	gotLimit           int
}

func (f *fakeRecommender) MovieRecommendations(_ context.Context, _ string, ignoreCollected, _ bool, limit int) ([]trakt.Movie, error) {
	f.gotIgnoreCollected = ignoreCollected
	f.gotLimit = limit
	return f.movies, f.err
}

func (f *fakeRecommender) ShowRecommendations(_ context.Context, _ string, _, _ bool, limit int) ([]trakt.Show, error) {
	f.gotLimit = limit
	return f.shows, f.err
}

func (f *fakeRecommender) TrendingMovies(_ context.Context, _ string, limit int) ([]trakt.Movie, error) {
	f.gotLimit = limit
	return f.trending, f.err
}

func providerConfig() *config.Config {
	cfg := config.Default()
	cfg.Users = []config.User{{ID: "alice"}}
	return cfg
}

func TestMoviesFetch(t *testing.T) {
	api := &fakeRecommender{
		movies: []trakt.Movie{
			{Title: "Heat", Year: 1995, IDs: trakt.IDs{Trakt: 603, TMDB: 949}, Genres: []string{"crime"}},
			{Title: "No ID"}, // unaddressable, dropped
		},
	}
	cfg := providerConfig()
	p := NewMovies(api, cfg, zerolog.Nop())

	items, err := p.Fetch(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, media.KindMovie, item.Kind)
	assert.Equal(t, "Heat", item.Title)
	assert.Equal(t, int64(603), item.IDs.Trakt)
	assert.Equal(t, NameMovies, item.Provider)
	assert.Equal(t, []string{"crime"}, item.Genres)
	assert.False(t, item.AddedAt.IsZero())

	assert.Equal(t, cfg.Providers.IgnoreCollected, api.gotIgnoreCollected)
	assert.Equal(t, cfg.Providers.MovieLimit, api.gotLimit)
}

func TestShowsFetch(t *testing.T) {
	api := &fakeRecommender{
		shows: []trakt.Show{
			{Title: "Breaking Bad", Year: 2008, IDs: trakt.IDs{Trakt: 1388, TVDB: 81189}},
			{Title: "No ID"},
		},
	}
	p := NewShows(api, providerConfig(), zerolog.Nop())

	items, err := p.Fetch(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, media.KindShow, items[0].Kind)
	assert.Equal(t, NameShows, items[0].Provider)
	assert.Equal(t, int64(81189), items[0].IDs.TVDB)
	assert.Zero(t, items[0].Season)
}

func TestTrendingFetch(t *testing.T) {
	api := &fakeRecommender{
		trending: []trakt.Movie{{Title: "New Thing", IDs: trakt.IDs{Trakt: 9}}},
	}
	cfg := providerConfig()
	p := NewTrending(api, cfg, zerolog.Nop())

	items, err := p.Fetch(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, NameTrending, items[0].Provider)
	assert.Equal(t, cfg.Providers.TrendingLimit, api.gotLimit)
}

func TestFetchPropagatesUpstreamError(t *testing.T) {
	api := &fakeRecommender{err: errors.New("rate limited")}
	p := NewMovies(api, providerConfig(), zerolog.Nop())

	_, err := p.Fetch(context.Background(), "alice")
	require.Error(t, err)
}

func TestEnabledForFollowsConfig(t *testing.T) {
	cfg := providerConfig()
	cfg.Users = []config.User{
		{ID: "alice", Providers: []string{NameMovies}},
		{ID: "bob", Providers: []string{NameShows}},
		{ID: "carol"},
	}
	p := NewMovies(&fakeRecommender{}, cfg, zerolog.Nop())

	assert.True(t, p.EnabledFor("alice"))
	assert.False(t, p.EnabledFor("bob"), "explicit list without this provider")
	assert.True(t, p.EnabledFor("carol"), "empty list enables everything")
	assert.False(t, p.EnabledFor("mallory"), "unknown user")
}

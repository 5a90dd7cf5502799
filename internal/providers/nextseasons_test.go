package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/cache"
	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/trakt"
)

type fakeSeriesAPI struct {
	watched []trakt.WatchedShow
	seasons map[int64][]trakt.Season
}

func (f *fakeSeriesAPI) WatchedShows(context.Context, string) ([]trakt.WatchedShow, error) {
	return f.watched, nil
}

func (f *fakeSeriesAPI) ShowSeasons(_ context.Context, _ string, showID int64) ([]trakt.Season, error) {
	return f.seasons[showID], nil
}

func (f *fakeSeriesAPI) WatchHistory(context.Context, string, time.Time, time.Time) ([]trakt.HistoryEvent, error) {
	return nil, nil
}

type fakeLookup struct {
	existing map[int64]map[int]bool
	err      error
}

func (f *fakeLookup) SeasonExists(_ context.Context, tvdbID int64, season int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[tvdbID][season], nil
}

func watchedUpTo(traktID, tvdbID int64, title string, highest int) trakt.WatchedShow {
	ws := trakt.WatchedShow{
		Show: trakt.Show{
			Title:  title,
			Status: "returning series",
			IDs:    trakt.IDs{Trakt: traktID, TVDB: tvdbID},
		},
	}
	for n := 1; n <= highest; n++ {
		ws.Seasons = append(ws.Seasons, trakt.WatchedSeason{
			Number:   n,
			Episodes: []trakt.WatchedEpisode{{Number: 1, Plays: 1}},
		})
	}
	return ws
}

func newNextSeasonsFixture(api *fakeSeriesAPI, lookup *fakeLookup) *NextSeasons {
	cfg := config.Default()
	cfg.Users = []config.User{{ID: "alice"}}
	ended := cache.NewEndedSeriesCache(0)
	progress := cache.NewSeriesProgressCache(api, ended, zerolog.Nop())
	return NewNextSeasons(progress, api, lookup, cfg, zerolog.Nop())
}

func TestNextSeasonRecommended(t *testing.T) {
	// Watched season 3; season 4 exists upstream with 6 aired episodes
	// and is absent locally.
	api := &fakeSeriesAPI{
		watched: []trakt.WatchedShow{watchedUpTo(10, 42, "Series X", 3)},
		seasons: map[int64][]trakt.Season{
			10: {
				{Number: 1, EpisodeCount: 10, AiredEpisodes: 10},
				{Number: 2, EpisodeCount: 10, AiredEpisodes: 10},
				{Number: 3, EpisodeCount: 10, AiredEpisodes: 10},
				{Number: 4, EpisodeCount: 10, AiredEpisodes: 6},
			},
		},
	}
	p := newNextSeasonsFixture(api, &fakeLookup{})

	items, err := p.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Kind != media.KindShow || item.Season != 4 {
		t.Errorf("item = %+v, want show season 4", item)
	}
	if item.Provider != NameNextSeasons {
		t.Errorf("provider tag = %q", item.Provider)
	}
}

func TestNextSeasonAlreadyOnDisk(t *testing.T) {
	api := &fakeSeriesAPI{
		watched: []trakt.WatchedShow{watchedUpTo(10, 42, "Series X", 3)},
		seasons: map[int64][]trakt.Season{
			10: {
				{Number: 3, EpisodeCount: 10, AiredEpisodes: 10},
				{Number: 4, EpisodeCount: 10, AiredEpisodes: 10},
			},
		},
	}
	lookup := &fakeLookup{existing: map[int64]map[int]bool{42: {4: true}}}
	p := newNextSeasonsFixture(api, lookup)

	items, err := p.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items for locally present season, got %d", len(items))
	}
}

func TestNextSeasonNotYetAiring(t *testing.T) {
	// Season 4 announced but zero episodes aired: not released.
	api := &fakeSeriesAPI{
		watched: []trakt.WatchedShow{
			{
				Show: trakt.Show{
					Title:  "Series X",
					Status: "ended", // cache all seasons, including the unaired one
					IDs:    trakt.IDs{Trakt: 10, TVDB: 42},
				},
				Seasons: []trakt.WatchedSeason{
					{Number: 3, Episodes: []trakt.WatchedEpisode{{Number: 1, Plays: 1}}},
				},
			},
		},
		seasons: map[int64][]trakt.Season{
			10: {
				{Number: 3, EpisodeCount: 10, AiredEpisodes: 10},
				{Number: 4, EpisodeCount: 10, AiredEpisodes: 0},
			},
		},
	}
	p := newNextSeasonsFixture(api, &fakeLookup{})

	items, err := p.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items for unaired season, got %d", len(items))
	}
}

func TestNextSeasonSkipsSeriesWithoutTVDB(t *testing.T) {
	api := &fakeSeriesAPI{
		watched: []trakt.WatchedShow{watchedUpTo(10, 0, "No Join Key", 2)},
		seasons: map[int64][]trakt.Season{
			10: {{Number: 3, EpisodeCount: 8, AiredEpisodes: 8}},
		},
	}
	p := newNextSeasonsFixture(api, &fakeLookup{})

	items, err := p.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items without a TVDB ID, got %d", len(items))
	}
}

func TestNextSeasonOnlyStrictlyNext(t *testing.T) {
	// Seasons 4 and 5 both missing locally; only 4 may be suggested.
	api := &fakeSeriesAPI{
		watched: []trakt.WatchedShow{watchedUpTo(10, 42, "Series X", 3)},
		seasons: map[int64][]trakt.Season{
			10: {
				{Number: 3, EpisodeCount: 10, AiredEpisodes: 10},
				{Number: 4, EpisodeCount: 10, AiredEpisodes: 10},
				{Number: 5, EpisodeCount: 10, AiredEpisodes: 10},
			},
		},
	}
	p := newNextSeasonsFixture(api, &fakeLookup{})

	items, err := p.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Season != 4 {
		t.Errorf("season = %d, want strictly next (4)", items[0].Season)
	}
}

func TestNextSeasonInventoryFailureSkipsSeries(t *testing.T) {
	api := &fakeSeriesAPI{
		watched: []trakt.WatchedShow{watchedUpTo(10, 42, "Series X", 3)},
		seasons: map[int64][]trakt.Season{
			10: {{Number: 4, EpisodeCount: 10, AiredEpisodes: 10}},
		},
	}
	p := newNextSeasonsFixture(api, &fakeLookup{err: errors.New("mount gone")})

	items, err := p.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("inventory failure must not fail the fetch: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items when inventory is unreachable, got %d", len(items))
	}
}

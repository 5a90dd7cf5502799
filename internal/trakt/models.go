package trakt

import (
	"strings"
	"time"
)

// IDs holds the identifiers Trakt attaches to movies and shows.
type IDs struct {
	Trakt int64  `json:"trakt"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TVDB  int64  `json:"tvdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
}

// Movie is a Trakt movie with extended metadata.
type Movie struct {
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	IDs      IDs      `json:"ids"`
	Genres   []string `json:"genres,omitempty"`
	Overview string   `json:"overview,omitempty"`
}

// Show is a Trakt show with extended metadata.
type Show struct {
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	IDs      IDs      `json:"ids"`
	Status   string   `json:"status,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	Overview string   `json:"overview,omitempty"`
}

// Ended reports whether the show's status marks it as finished.
// Trakt uses "ended" for concluded shows and "canceled" for axed ones.
func (s Show) Ended() bool {
	switch strings.ToLower(s.Status) {
	case "ended", "canceled":
		return true
	}
	return false
}

// Season is one season of a show as returned by /shows/{id}/seasons.
type Season struct {
	Number        int        `json:"number"`
	EpisodeCount  int        `json:"episode_count"`
	AiredEpisodes int        `json:"aired_episodes"`
	FirstAired    *time.Time `json:"first_aired,omitempty"`
}

// WatchedEpisode is a single watched episode within a watched season.
type WatchedEpisode struct {
	Number int `json:"number"`
	Plays  int `json:"plays"`
}

// WatchedSeason groups the watched episodes of one season.
type WatchedSeason struct {
	Number   int              `json:"number"`
	Episodes []WatchedEpisode `json:"episodes"`
}

// WatchedShow is one entry of /sync/watched/shows.
type WatchedShow struct {
	Plays         int             `json:"plays"`
	LastWatchedAt time.Time       `json:"last_watched_at"`
	Show          Show            `json:"show"`
	Seasons       []WatchedSeason `json:"seasons"`
}

// Episode is an episode reference inside a history event.
type Episode struct {
	Season int `json:"season"`
	Number int `json:"number"`
}

// HistoryEvent is one entry of /sync/history.
type HistoryEvent struct {
	ID        int64     `json:"id"`
	WatchedAt time.Time `json:"watched_at"`
	Action    string    `json:"action"`
	Type      string    `json:"type"`
	Show      *Show     `json:"show,omitempty"`
	Episode   *Episode  `json:"episode,omitempty"`
	Movie     *Movie    `json:"movie,omitempty"`
}

// trendingMovie wraps a movie in the /movies/trending response shape.
type trendingMovie struct {
	Watchers int   `json:"watchers"`
	Movie    Movie `json:"movie"`
}

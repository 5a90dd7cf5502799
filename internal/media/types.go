// Package media defines the shared content types exchanged between
// providers, caches, and acquisition backends.
package media

import (
	"fmt"
	"time"
)

// Kind identifies the type of a recommendable item.
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "show"
)

// IDs holds the external catalog identifiers for an item.
// Trakt is the primary lookup ID; TVDB is the stable join key
// against local on-disk inventory.
type IDs struct {
	Trakt int64  `json:"trakt"`
	IMDB  string `json:"imdb,omitempty"`
	TVDB  int64  `json:"tvdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
}

// Item is a single recommendable unit produced by a provider.
// Items are immutable value objects: every sync cycle builds them fresh.
type Item struct {
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title"`
	Year     int       `json:"year,omitempty"`
	IDs      IDs       `json:"ids"`
	Provider string    `json:"provider"`
	Season   int       `json:"season,omitempty"` // set only for next-season items
	Genres   []string  `json:"genres,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}

// Key returns the identity of the item within a cached set.
// Season participates in the identity only when set, so the same series
// can appear once per pending season.
func (i Item) Key() string {
	if i.Season > 0 {
		return fmt.Sprintf("%s:%d:s%d", i.Kind, i.IDs.Trakt, i.Season)
	}
	return fmt.Sprintf("%s:%d", i.Kind, i.IDs.Trakt)
}

package trakt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// MovieRecommendations returns personalized movie recommendations.
func (c *Client) MovieRecommendations(ctx context.Context, userID string, ignoreCollected, ignoreWatchlisted bool, limit int) ([]Movie, error) {
	var movies []Movie
	if _, err := c.get(ctx, userID, "/recommendations/movies", recommendQuery(ignoreCollected, ignoreWatchlisted, limit), &movies); err != nil {
		return nil, fmt.Errorf("failed to get movie recommendations: %w", err)
	}
	return movies, nil
}

// ShowRecommendations returns personalized show recommendations.
func (c *Client) ShowRecommendations(ctx context.Context, userID string, ignoreCollected, ignoreWatchlisted bool, limit int) ([]Show, error) {
	var shows []Show
	if _, err := c.get(ctx, userID, "/recommendations/shows", recommendQuery(ignoreCollected, ignoreWatchlisted, limit), &shows); err != nil {
		return nil, fmt.Errorf("failed to get show recommendations: %w", err)
	}
	return shows, nil
}

// TrendingMovies returns the movies with the most current watchers.
func (c *Client) TrendingMovies(ctx context.Context, userID string, limit int) ([]Movie, error) {
	query := url.Values{}
	query.Set("extended", "full")
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var trending []trendingMovie
	if _, err := c.get(ctx, userID, "/movies/trending", query, &trending); err != nil {
		return nil, fmt.Errorf("failed to get trending movies: %w", err)
	}

	movies := make([]Movie, 0, len(trending))
	for _, t := range trending {
		movies = append(movies, t.Movie)
	}
	return movies, nil
}

func recommendQuery(ignoreCollected, ignoreWatchlisted bool, limit int) url.Values {
	query := url.Values{}
	query.Set("extended", "full")
	query.Set("ignore_collected", strconv.FormatBool(ignoreCollected))
	query.Set("ignore_watchlisted", strconv.FormatBool(ignoreWatchlisted))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return query
}

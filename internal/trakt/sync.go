package trakt

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// WatchedShows returns every show the user has watched at least one
// episode of, with per-season watched episodes and full show metadata.
func (c *Client) WatchedShows(ctx context.Context, userID string) ([]WatchedShow, error) {
	query := url.Values{}
	query.Set("extended", "full")

	var shows []WatchedShow
	if _, err := c.get(ctx, userID, "/sync/watched/shows", query, &shows); err != nil {
		return nil, fmt.Errorf("failed to get watched shows: %w", err)
	}
	return shows, nil
}

// ShowSeasons returns all seasons of a show with aired/episode counts.
func (c *Client) ShowSeasons(ctx context.Context, userID string, showID int64) ([]Season, error) {
	query := url.Values{}
	query.Set("extended", "full")

	var seasons []Season
	path := fmt.Sprintf("/shows/%d/seasons", showID)
	if _, err := c.get(ctx, userID, path, query, &seasons); err != nil {
		return nil, fmt.Errorf("failed to get seasons for show %d: %w", showID, err)
	}
	return seasons, nil
}

// WatchHistory returns the user's episode watch events between start and
// end, following pagination until exhausted.
func (c *Client) WatchHistory(ctx context.Context, userID string, start, end time.Time) ([]HistoryEvent, error) {
	base := url.Values{}
	base.Set("start_at", start.UTC().Format(time.RFC3339))
	base.Set("end_at", end.UTC().Format(time.RFC3339))
	base.Set("extended", "full")

	var events []HistoryEvent
	for page := 1; page <= maxPages; page++ {
		var batch []HistoryEvent
		headers, err := c.get(ctx, userID, "/sync/history/shows", pagedQuery(base, page), &batch)
		if err != nil {
			return nil, fmt.Errorf("failed to get watch history: %w", err)
		}
		events = append(events, batch...)
		if page >= pageCount(headers) || len(batch) == 0 {
			break
		}
	}
	return events, nil
}

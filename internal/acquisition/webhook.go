package acquisition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
)

// Webhook posts a generic JSON payload to a user-supplied endpoint and
// treats any 2xx as accepted. The receiver decides what to do with it;
// this backend only fires and acknowledges. A correlation ID is
// generated locally since the receiver reports none.
type Webhook struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
	newID      func() string
}

var _ Backend = (*Webhook)(nil)

// NewWebhook creates a webhook backend from its config section.
func NewWebhook(cfg config.BackendConfig, logger zerolog.Logger) *Webhook {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Webhook{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "acquisition").Str("backend", string(BackendWebhook)).Logger(),
		newID:      uuid.NewString,
	}
}

func (w *Webhook) Name() string { return string(BackendWebhook) }

// webhookPayload is the request body.
type webhookPayload struct {
	RequestID string    `json:"requestId"`
	EventType string    `json:"eventType"`
	Requester string    `json:"requester,omitempty"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	TraktID   int64     `json:"traktId,omitempty"`
	IMDbID    string    `json:"imdbId,omitempty"`
	TVDbID    int64     `json:"tvdbId,omitempty"`
	TMDbID    int64     `json:"tmdbId,omitempty"`
	Season    int       `json:"season,omitempty"`
	IsAnime   bool      `json:"isAnime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (w *Webhook) RequestMovie(ctx context.Context, item media.Item, requesterID string) (Result, error) {
	return w.send(ctx, webhookPayload{
		RequestID: w.newID(),
		EventType: "requestMovie",
		Requester: requesterID,
		Title:     item.Title,
		Year:      item.Year,
		TraktID:   item.IDs.Trakt,
		IMDbID:    item.IDs.IMDB,
		TMDbID:    item.IDs.TMDB,
		Timestamp: time.Now().UTC(),
	})
}

func (w *Webhook) RequestShow(ctx context.Context, item media.Item, season int, requesterID string, isAnime bool) (Result, error) {
	return w.send(ctx, webhookPayload{
		RequestID: w.newID(),
		EventType: "requestShow",
		Requester: requesterID,
		Title:     item.Title,
		Year:      item.Year,
		TraktID:   item.IDs.Trakt,
		IMDbID:    item.IDs.IMDB,
		TVDbID:    item.IDs.TVDB,
		TMDbID:    item.IDs.TMDB,
		Season:    season,
		IsAnime:   isAnime,
		Timestamp: time.Now().UTC(),
	})
}

func (w *Webhook) send(ctx context.Context, payload webhookPayload) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return failure("internal error"), fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return failure("internal error"), fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("X-Api-Key", w.apiKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return failure("webhook endpoint is unreachable"), fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(fmt.Sprintf("webhook returned status %d", resp.StatusCode)),
			fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.Info().
		Str("title", payload.Title).
		Str("request_id", payload.RequestID).
		Str("event", payload.EventType).
		Msg("Request submitted")

	return Result{
		Success:   true,
		Message:   payload.Title + " requested",
		RequestID: payload.RequestID,
	}, nil
}

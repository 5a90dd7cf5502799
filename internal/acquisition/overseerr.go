package acquisition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/media"
)

// Overseerr requests content through Overseerr's native API
// (POST /api/v1/request with an X-Api-Key header). Overseerr resolves
// media by TMDB ID, so items without one are rejected up front.
type Overseerr struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Backend = (*Overseerr)(nil)

// NewOverseerr creates an Overseerr backend from its config section.
func NewOverseerr(cfg config.BackendConfig, logger zerolog.Logger) *Overseerr {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Overseerr{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "acquisition").Str("backend", string(BackendOverseerr)).Logger(),
	}
}

func (o *Overseerr) Name() string { return string(BackendOverseerr) }

type overseerrRequest struct {
	MediaType string `json:"mediaType"`
	MediaID   int64  `json:"mediaId"`
	Seasons   []int  `json:"seasons,omitempty"`
}

type overseerrResponse struct {
	ID      int64  `json:"id"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (o *Overseerr) RequestMovie(ctx context.Context, item media.Item, requesterID string) (Result, error) {
	if item.IDs.TMDB == 0 {
		return failure("cannot request " + item.Title + ": no TMDB ID"), nil
	}
	return o.send(ctx, item, requesterID, overseerrRequest{
		MediaType: "movie",
		MediaID:   item.IDs.TMDB,
	})
}

func (o *Overseerr) RequestShow(ctx context.Context, item media.Item, season int, requesterID string, isAnime bool) (Result, error) {
	if item.IDs.TMDB == 0 {
		return failure("cannot request " + item.Title + ": no TMDB ID"), nil
	}
	return o.send(ctx, item, requesterID, overseerrRequest{
		MediaType: "tv",
		MediaID:   item.IDs.TMDB,
		Seasons:   []int{season},
	})
}

func (o *Overseerr) send(ctx context.Context, item media.Item, requesterID string, payload overseerrRequest) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return failure("internal error"), fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url+"/api/v1/request", bytes.NewReader(body))
	if err != nil {
		return failure("internal error"), fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return failure("Overseerr is unreachable"), fmt.Errorf("failed to reach overseerr: %w", err)
	}
	defer resp.Body.Close()

	var decoded overseerrResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("Overseerr returned status %d", resp.StatusCode)
		}
		return failure(msg), fmt.Errorf("overseerr request failed: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		// Request was accepted; the body is a bonus.
		decoded = overseerrResponse{}
	}

	o.logger.Info().
		Str("title", item.Title).
		Str("requester", requesterID).
		Int64("request_id", decoded.ID).
		Msg("Request submitted")

	result := Result{Success: true, Message: item.Title + " requested"}
	if decoded.ID != 0 {
		result.RequestID = strconv.FormatInt(decoded.ID, 10)
	}
	return result, nil
}

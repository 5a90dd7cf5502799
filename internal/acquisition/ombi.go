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

// Ombi requests content through the Ombi request broker. Ombi
// authenticates with an ApiKey header and impersonates the requesting
// user via UserName, so requests show up under the right account.
type Ombi struct {
	url        string
	apiKey     string
	username   string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Backend = (*Ombi)(nil)

// NewOmbi creates an Ombi backend from its config section.
func NewOmbi(cfg config.BackendConfig, logger zerolog.Logger) *Ombi {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Ombi{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		username:   cfg.Username,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "acquisition").Str("backend", string(BackendOmbi)).Logger(),
	}
}

func (o *Ombi) Name() string { return string(BackendOmbi) }

type ombiMovieRequest struct {
	TheMovieDBID int64 `json:"theMovieDbId"`
}

type ombiShowRequest struct {
	TvDbID  int64        `json:"tvDbId"`
	Seasons []ombiSeason `json:"seasons"`
}

type ombiSeason struct {
	SeasonNumber int `json:"seasonNumber"`
}

type ombiResponse struct {
	Result       bool   `json:"result"`
	Message      string `json:"message"`
	ErrorMessage string `json:"errorMessage"`
	RequestID    int64  `json:"requestId"`
}

func (o *Ombi) RequestMovie(ctx context.Context, item media.Item, requesterID string) (Result, error) {
	if item.IDs.TMDB == 0 {
		return failure("cannot request " + item.Title + ": no TMDB ID"), nil
	}
	return o.send(ctx, "/api/v1/Request/movie", item, requesterID,
		ombiMovieRequest{TheMovieDBID: item.IDs.TMDB})
}

func (o *Ombi) RequestShow(ctx context.Context, item media.Item, season int, requesterID string, isAnime bool) (Result, error) {
	if item.IDs.TVDB == 0 {
		return failure("cannot request " + item.Title + ": no TVDB ID"), nil
	}
	path := "/api/v1/Request/tv"
	if isAnime {
		// Ombi routes anime through a dedicated endpoint so it lands
		// in the anime root folder.
		path = "/api/v2/Requests/tv"
	}
	return o.send(ctx, path, item, requesterID, ombiShowRequest{
		TvDbID:  item.IDs.TVDB,
		Seasons: []ombiSeason{{SeasonNumber: season}},
	})
}

func (o *Ombi) send(ctx context.Context, path string, item media.Item, requesterID string, payload any) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return failure("internal error"), fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url+path, bytes.NewReader(body))
	if err != nil {
		return failure("internal error"), fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ApiKey", o.apiKey)
	username := o.username
	if requesterID != "" {
		username = requesterID
	}
	if username != "" {
		req.Header.Set("UserName", username)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return failure("Ombi is unreachable"), fmt.Errorf("failed to reach ombi: %w", err)
	}
	defer resp.Body.Close()

	var decoded ombiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && resp.StatusCode >= 300 {
		return failure(fmt.Sprintf("Ombi returned status %d", resp.StatusCode)),
			fmt.Errorf("ombi request failed: status %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (!decoded.Result && decoded.ErrorMessage != "") {
		msg := decoded.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("Ombi returned status %d", resp.StatusCode)
		}
		return failure(msg), fmt.Errorf("ombi request rejected: %s", msg)
	}

	o.logger.Info().
		Str("title", item.Title).
		Str("requester", requesterID).
		Int64("request_id", decoded.RequestID).
		Msg("Request submitted")

	message := decoded.Message
	if message == "" {
		message = item.Title + " requested"
	}
	result := Result{Success: true, Message: message}
	if decoded.RequestID != 0 {
		result.RequestID = strconv.FormatInt(decoded.RequestID, 10)
	}
	return result, nil
}

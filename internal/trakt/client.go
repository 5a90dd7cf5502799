// Package trakt implements the upstream recommendation and watch-history
// client, including per-user token storage and the device OAuth flow.
package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.trakt.tv"
	apiVersion     = "2"

	// maxPages bounds history pagination so a runaway upstream
	// response cannot stall a sync pass.
	maxPages = 20
	pageSize = 1000
)

var (
	ErrNotAuthorized = errors.New("user has no trakt token")
	ErrAPIError      = errors.New("trakt API error")
)

// Client talks to the Trakt API on behalf of linked users.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	tokens       TokenStore
	httpClient   *http.Client
	logger       zerolog.Logger

	auth *authRegistry
}

// NewClient creates a Trakt client.
func NewClient(clientID, clientSecret string, tokens TokenStore, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokens:       tokens,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger.With().Str("component", "trakt").Logger(),
		auth:         newAuthRegistry(),
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// HasToken reports whether the user has a stored credential.
func (c *Client) HasToken(userID string) bool {
	_, err := c.tokens.Token(userID)
	return err == nil
}

// get performs an authenticated GET and decodes the JSON response.
// The response headers are returned so callers can drive pagination.
func (c *Client) get(ctx context.Context, userID, path string, query url.Values, result interface{}) (http.Header, error) {
	if err := c.ensureValidToken(ctx, userID); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(userID)
	if err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	c.logger.Debug().Str("url", fullURL).Str("user", userID).Msg("Trakt API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// post performs an unauthenticated POST (OAuth endpoints) and returns
// the HTTP status so callers can distinguish device-flow outcomes.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)
}

// ensureValidToken refreshes the user's token when it is close to expiry.
func (c *Client) ensureValidToken(ctx context.Context, userID string) error {
	token, err := c.tokens.Token(userID)
	if err != nil {
		return err
	}

	if time.Until(token.ExpiresAt) < 24*time.Hour {
		c.logger.Info().Str("user", userID).Msg("Token expires soon, refreshing")
		return c.refreshToken(ctx, userID, token)
	}
	return nil
}

func (c *Client) refreshToken(ctx context.Context, userID string, token *Token) error {
	req := map[string]string{
		"refresh_token": token.RefreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "refresh_token",
	}

	var resp tokenResponse
	status, err := c.post(ctx, "/oauth/token", req, &resp)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: token refresh returned status %d", ErrAPIError, status)
	}

	return c.tokens.Save(userID, &Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	})
}

func pagedQuery(query url.Values, page int) url.Values {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(pageSize))
	return q
}

func pageCount(h http.Header) int {
	n, err := strconv.Atoi(h.Get("X-Pagination-Page-Count"))
	if err != nil {
		return 1
	}
	return n
}

package trakt

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuthState is the observable state of a device authorization attempt.
type AuthState string

const (
	AuthNone       AuthState = "none"
	AuthPending    AuthState = "pending"
	AuthAuthorized AuthState = "authorized"
	AuthDenied     AuthState = "denied"
	AuthExpired    AuthState = "expired"
)

// DeviceAuth is what the user needs to complete authorization.
type DeviceAuth struct {
	UserCode        string `json:"userCode"`
	VerificationURL string `json:"verificationUrl"`
	ExpiresIn       int    `json:"expiresIn"`
	Interval        int    `json:"interval"`
}

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// authRegistry tracks one device-flow polling task per user. Polling
// runs as a background task that self-terminates on a terminal state;
// the outcome stays queryable instead of vanishing with the goroutine.
type authRegistry struct {
	mu    sync.Mutex
	tasks map[string]*authTask
}

type authTask struct {
	state  AuthState
	cancel context.CancelFunc
}

func newAuthRegistry() *authRegistry {
	return &authRegistry{tasks: make(map[string]*authTask)}
}

func (r *authRegistry) start(userID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.tasks[userID]; ok && prev.state == AuthPending {
		prev.cancel()
	}
	r.tasks[userID] = &authTask{state: AuthPending, cancel: cancel}
}

func (r *authRegistry) set(userID string, state AuthState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[userID]; ok {
		task.state = state
	}
}

func (r *authRegistry) get(userID string) AuthState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[userID]; ok {
		return task.state
	}
	return AuthNone
}

// AuthStatus returns the state of the user's device authorization attempt.
func (c *Client) AuthStatus(userID string) AuthState {
	return c.auth.get(userID)
}

// StartDeviceAuth begins the device OAuth flow for a user. It returns the
// code the user must enter and spawns a background polling task that ends
// in one of {authorized, denied, expired}. The task never blocks syncing.
func (c *Client) StartDeviceAuth(ctx context.Context, userID string) (*DeviceAuth, error) {
	req := map[string]string{"client_id": c.clientID}

	var resp deviceCodeResponse
	status, err := c.post(ctx, "/oauth/device/code", req, &resp)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, ErrAPIError
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	c.auth.start(userID, cancel)
	go c.pollDeviceToken(pollCtx, userID, resp)

	c.logger.Info().
		Str("user", userID).
		Str("url", resp.VerificationURL).
		Str("code", resp.UserCode).
		Msg("Device authorization started")

	return &DeviceAuth{
		UserCode:        resp.UserCode,
		VerificationURL: resp.VerificationURL,
		ExpiresIn:       resp.ExpiresIn,
		Interval:        resp.Interval,
	}, nil
}

// CancelDeviceAuth stops an in-flight polling task for the user.
func (c *Client) CancelDeviceAuth(userID string) {
	c.auth.mu.Lock()
	defer c.auth.mu.Unlock()
	if task, ok := c.auth.tasks[userID]; ok && task.state == AuthPending {
		task.cancel()
		task.state = AuthExpired
	}
}

// pollDeviceToken polls /oauth/device/token on the server-provided
// interval until a terminal state is reached.
func (c *Client) pollDeviceToken(ctx context.Context, userID string, device deviceCodeResponse) {
	interval := time.Duration(device.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(device.ExpiresIn) * time.Second)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := c.logger.With().Str("user", userID).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Now().After(deadline) {
				c.auth.set(userID, AuthExpired)
				logger.Warn().Msg("Device code expired before authorization")
				return
			}

			state, err := c.tryDeviceToken(ctx, userID, device.DeviceCode, &logger)
			if err != nil {
				logger.Debug().Err(err).Msg("Device token poll failed, retrying")
				continue
			}

			switch state {
			case AuthAuthorized, AuthDenied, AuthExpired:
				c.auth.set(userID, state)
				return
			}
		}
	}
}

func (c *Client) tryDeviceToken(ctx context.Context, userID, deviceCode string, logger *zerolog.Logger) (AuthState, error) {
	req := map[string]string{
		"code":          deviceCode,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}

	var resp tokenResponse
	status, err := c.post(ctx, "/oauth/device/token", req, &resp)
	if err != nil {
		return AuthPending, err
	}

	switch {
	case status >= 200 && status < 300:
		token := &Token{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		}
		if err := c.tokens.Save(userID, token); err != nil {
			return AuthPending, err
		}
		logger.Info().Msg("Device authorization successful")
		return AuthAuthorized, nil
	case status == http.StatusConflict:
		// Code already approved; token was delivered on a previous poll.
		return AuthAuthorized, nil
	case status == http.StatusTeapot:
		// Trakt signals an explicit user denial with 418.
		logger.Warn().Msg("Device authorization denied by user")
		return AuthDenied, nil
	case status == http.StatusGone:
		return AuthExpired, nil
	default:
		// 400 means the user has not entered the code yet.
		return AuthPending, nil
	}
}

// Package acquisition turns an approved recommendation into a download
// request against one of the interchangeable request backends.
package acquisition

import (
	"context"
	"errors"

	"github.com/watchnext/watchnext/internal/media"
)

// BackendType identifies a request backend implementation.
type BackendType string

const (
	BackendOverseerr BackendType = "overseerr"
	BackendOmbi      BackendType = "ombi"
	BackendWebhook   BackendType = "webhook"
)

// ErrUnknownBackend is returned by the factory for an unrecognized
// backend name.
var ErrUnknownBackend = errors.New("unknown acquisition backend")

// Result is the structured outcome of a request. Message is meant for
// the user; RequestID correlates with the backend's own queue when it
// reports one.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Backend is a "request a download" strategy. Implementations never
// panic the caller: transport and remote failures come back as an
// error alongside a failed Result.
type Backend interface {
	Name() string
	RequestMovie(ctx context.Context, item media.Item, requesterID string) (Result, error)
	RequestShow(ctx context.Context, item media.Item, season int, requesterID string, isAnime bool) (Result, error)
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}

package media

import "context"

// Provider produces recommendation items for a user.
// Implementations must be safe for concurrent use: the sync service
// fans out across users while sharing provider instances.
type Provider interface {
	// Name returns the stable provider identifier used as a cache key.
	Name() string

	// EnabledFor reports whether this provider is enabled for the user.
	EnabledFor(userID string) bool

	// Fetch returns the current recommendations for the user.
	Fetch(ctx context.Context, userID string) ([]Item, error)
}

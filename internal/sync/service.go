// Package sync orchestrates the periodic recommendation refresh: one
// concurrent pass per linked user, sequential providers within a user,
// with per-provider failure isolation.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/watchnext/watchnext/internal/cache"
	"github.com/watchnext/watchnext/internal/media"
)

// CredentialChecker reports whether a user holds a valid upstream
// credential. Users without one are skipped silently.
type CredentialChecker interface {
	HasToken(userID string) bool
}

// Summary aggregates the outcome of one full sync pass.
type Summary struct {
	StartedAt    time.Time `json:"startedAt"`
	Duration     string    `json:"duration"`
	UsersSynced  int       `json:"usersSynced"`
	UsersSkipped int       `json:"usersSkipped"`
	Providers    int       `json:"providers"`
	Failures     int       `json:"failures"`
	EndedSwept   int       `json:"endedSwept"`
}

// Service runs recommendation syncs across users and providers.
type Service struct {
	userIDs     []string
	providers   []media.Provider
	items       *cache.ItemCache
	ended       *cache.EndedSeriesCache
	credentials CredentialChecker
	logger      zerolog.Logger

	mu   sync.Mutex
	last *Summary
}

// NewService creates the sync service.
func NewService(userIDs []string, providers []media.Provider, items *cache.ItemCache, ended *cache.EndedSeriesCache, credentials CredentialChecker, logger zerolog.Logger) *Service {
	return &Service{
		userIDs:     userIDs,
		providers:   providers,
		items:       items,
		ended:       ended,
		credentials: credentials,
		logger:      logger.With().Str("component", "sync").Logger(),
	}
}

// LastSummary returns the outcome of the most recent SyncAll pass.
func (s *Service) LastSummary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// SyncAll refreshes recommendations for every linked user with a valid
// credential. Users run concurrently; a failure for one user or provider
// never blocks the others. After the pass the ended-series cache is
// swept once. Cancellation is checked between users and providers only.
func (s *Service) SyncAll(ctx context.Context) error {
	started := time.Now()
	s.logger.Info().Int("users", len(s.userIDs)).Msg("Starting recommendation sync")

	var (
		counts  sync.Mutex
		synced  int
		skipped int
		fails   int
		fetched int
	)

	p := pool.New().WithContext(ctx)
	for _, userID := range s.userIDs {
		if ctx.Err() != nil {
			break
		}
		if !s.credentials.HasToken(userID) {
			s.logger.Debug().Str("user", userID).Msg("No upstream credential, skipping user")
			skipped++
			continue
		}

		userID := userID
		p.Go(func(ctx context.Context) error {
			ok, failed := s.SyncUser(ctx, userID)
			counts.Lock()
			synced++
			fetched += ok
			fails += failed
			counts.Unlock()
			return nil
		})
	}
	err := p.Wait()

	swept := s.ended.SweepExpired()

	summary := &Summary{
		StartedAt:    started,
		Duration:     time.Since(started).Round(time.Millisecond).String(),
		UsersSynced:  synced,
		UsersSkipped: skipped,
		Providers:    fetched,
		Failures:     fails,
		EndedSwept:   swept,
	}
	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()

	s.logger.Info().
		Int("usersSynced", synced).
		Int("usersSkipped", skipped).
		Int("providerSyncs", fetched).
		Int("failures", fails).
		Int("endedSwept", swept).
		Dur("duration", time.Since(started)).
		Msg("Recommendation sync finished")

	return err
}

type syncOutcome int

const (
	syncOK syncOutcome = iota
	syncSkipped
	syncFailed
)

// SyncUser refreshes every registered provider for one user,
// sequentially so providers never race on the user's cache slots.
// Returns the number of successful and failed provider syncs; disabled
// providers count toward neither.
func (s *Service) SyncUser(ctx context.Context, userID string) (synced, failed int) {
	for _, provider := range s.providers {
		if ctx.Err() != nil {
			return synced, failed
		}
		switch s.syncProvider(ctx, userID, provider) {
		case syncOK:
			synced++
		case syncFailed:
			failed++
		}
	}
	return synced, failed
}

// syncProvider fetches one provider for one user and replaces its cache
// slot.
func (s *Service) syncProvider(ctx context.Context, userID string, provider media.Provider) syncOutcome {
	if !provider.EnabledFor(userID) {
		return syncSkipped
	}

	items, err := provider.Fetch(ctx, userID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user", userID).
			Str("provider", provider.Name()).
			Msg("Provider sync failed")
		return syncFailed
	}
	if ctx.Err() != nil {
		// Canceled mid-pass: leave the previous cached set intact.
		return syncFailed
	}

	s.items.Put(userID, provider.Name(), items)
	s.logger.Debug().
		Str("user", userID).
		Str("provider", provider.Name()).
		Int("items", len(items)).
		Msg("Provider sync completed")
	return syncOK
}

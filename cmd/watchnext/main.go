package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/watchnext/watchnext/internal/acquisition"
	"github.com/watchnext/watchnext/internal/api"
	"github.com/watchnext/watchnext/internal/cache"
	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/library"
	"github.com/watchnext/watchnext/internal/logger"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/placeholder"
	"github.com/watchnext/watchnext/internal/providers"
	"github.com/watchnext/watchnext/internal/scheduler"
	"github.com/watchnext/watchnext/internal/scheduler/tasks"
	syncsvc "github.com/watchnext/watchnext/internal/sync"
	"github.com/watchnext/watchnext/internal/trakt"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "watchnext:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logging)
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Int("users", len(cfg.Users)).
		Msg("starting watchnext")

	tokens, err := trakt.NewDirTokenStore(cfg.Trakt.TokenDir)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	traktClient := trakt.NewClient(cfg.Trakt.ClientID, cfg.Trakt.ClientSecret, tokens, log.Logger)

	items := cache.NewItemCache(time.Duration(cfg.Cache.ItemTTLHours) * time.Hour)
	ended := cache.NewEndedSeriesCache(time.Duration(cfg.Cache.EndedTTLDays) * 24 * time.Hour)
	progress := cache.NewSeriesProgressCache(traktClient, ended, log.Logger)

	fs := afero.NewOsFs()
	lookup := library.NewFSLookup(fs, cfg.Library.Roots, log.Logger)

	providerList := []media.Provider{
		providers.NewMovies(traktClient, cfg, log.Logger),
		providers.NewShows(traktClient, cfg, log.Logger),
		providers.NewTrending(traktClient, cfg, log.Logger),
		providers.NewNextSeasons(progress, traktClient, lookup, cfg, log.Logger),
	}

	syncService := syncsvc.NewService(cfg.UserIDs(), providerList, items, ended, traktClient, log.Logger)
	materializer := placeholder.NewMaterializer(fs, items, cfg.Placeholders.Dir, cfg.Placeholders.ReferenceUser, log.Logger)

	backend, err := acquisition.New(cfg.Acquisition, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create acquisition backend: %w", err)
	}
	classifier := acquisition.NewKeywordClassifier(cfg.Providers.AnimeKeywords)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := tasks.RegisterRecommendationSyncTask(sched, syncService, materializer, cfg.Sync); err != nil {
		return fmt.Errorf("failed to register sync task: %w", err)
	}
	if err := tasks.RegisterPlaceholderRefreshTask(sched, materializer, ""); err != nil {
		return fmt.Errorf("failed to register placeholder task: %w", err)
	}
	sched.Start()

	server := api.NewServer(cfg, syncService, sched, traktClient, items, progress, ended,
		backend, classifier, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Address())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to stop scheduler")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("failed to shut down HTTP server")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

// Package placeholder materializes cached movie recommendations as
// .strm stub files so the host media server can surface them before
// the content is actually acquired.
package placeholder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/watchnext/watchnext/internal/cache"
	"github.com/watchnext/watchnext/internal/media"
)

// idTag extracts the trakt ID embedded in a placeholder filename,
// e.g. "The Matrix (1999) [trakt-481].strm".
var idTag = regexp.MustCompile(`\[trakt-(\d+)\]\.strm$`)

// unsafeChars are stripped from titles before they become filenames.
var unsafeChars = strings.NewReplacer(
	"/", "", "\\", "", ":", "", "*", "", "?", "",
	"\"", "", "<", "", ">", "", "|", "",
)

// Materializer reconciles the placeholder directory with the current
// movie recommendations of the reference user. Membership is decided
// entirely by the latest cache snapshot: stale stubs are deleted,
// missing ones created, survivors left untouched.
type Materializer struct {
	fs            afero.Fs
	items         *cache.ItemCache
	dir           string
	referenceUser string
	logger        zerolog.Logger
}

// NewMaterializer creates a placeholder materializer writing to dir.
func NewMaterializer(fs afero.Fs, items *cache.ItemCache, dir, referenceUser string, logger zerolog.Logger) *Materializer {
	return &Materializer{
		fs:            fs,
		items:         items,
		dir:           dir,
		referenceUser: referenceUser,
		logger:        logger.With().Str("component", "placeholder").Logger(),
	}
}

// Refresh performs one reconciliation pass. It returns the number of
// placeholders created and deleted.
func (m *Materializer) Refresh() (created, deleted int, err error) {
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("failed to create placeholder dir %s: %w", m.dir, err)
	}

	wanted := m.recommended()
	existing, err := m.materialized()
	if err != nil {
		return 0, 0, err
	}

	for id, name := range existing {
		if _, ok := wanted[id]; ok {
			continue
		}
		path := filepath.Join(m.dir, name)
		if err := m.fs.Remove(path); err != nil {
			m.logger.Warn().Err(err).Str("file", name).Msg("Failed to delete stale placeholder")
			continue
		}
		deleted++
	}

	for id, item := range wanted {
		if _, ok := existing[id]; ok {
			continue
		}
		name := stubName(item)
		path := filepath.Join(m.dir, name)
		if ok, _ := afero.Exists(m.fs, path); ok {
			continue
		}
		body := fmt.Sprintf("watchnext://play/%s\n", item.Key())
		if err := afero.WriteFile(m.fs, path, []byte(body), 0o644); err != nil {
			m.logger.Warn().Err(err).Str("file", name).Msg("Failed to create placeholder")
			continue
		}
		created++
		m.logger.Debug().Str("file", name).Int64("trakt", id).Msg("Placeholder created")
	}

	m.logger.Info().
		Int("created", created).
		Int("deleted", deleted).
		Int("total", len(wanted)).
		Msg("Placeholder reconciliation complete")
	return created, deleted, nil
}

// recommended collects the reference user's cached movie items keyed
// by trakt ID. Later providers do not overwrite earlier ones; the
// identity is the ID, not the provider.
func (m *Materializer) recommended() map[int64]media.Item {
	wanted := make(map[int64]media.Item)
	for _, items := range m.items.AllForUser(m.referenceUser) {
		for _, item := range items {
			if item.Kind != media.KindMovie || item.IDs.Trakt == 0 {
				continue
			}
			if _, ok := wanted[item.IDs.Trakt]; !ok {
				wanted[item.IDs.Trakt] = item
			}
		}
	}
	return wanted
}

// materialized scans the placeholder dir and returns trakt ID →
// filename for every stub currently on disk. Files without an ID tag
// are not ours and are left alone.
func (m *Materializer) materialized() (map[int64]string, error) {
	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read placeholder dir %s: %w", m.dir, err)
	}

	existing := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := idTag.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		existing[id] = entry.Name()
	}
	return existing, nil
}

func stubName(item media.Item) string {
	title := strings.TrimSpace(unsafeChars.Replace(item.Title))
	if item.Year > 0 {
		return fmt.Sprintf("%s (%d) [trakt-%d].strm", title, item.Year, item.IDs.Trakt)
	}
	return fmt.Sprintf("%s [trakt-%d].strm", title, item.IDs.Trakt)
}

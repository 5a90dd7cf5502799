// Package library answers "does this season already exist on disk"
// against the local media library.
package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Lookup is the read-only inventory query the decision layer needs.
type Lookup interface {
	SeasonExists(ctx context.Context, tvdbID int64, season int) (bool, error)
}

// FSLookup probes series directories under the configured library
// roots. A series directory carries a "[tvdbid-NNN]" tag in its name,
// the convention the *arr family writes; seasons live in "Season NN"
// subdirectories.
type FSLookup struct {
	fs     afero.Fs
	roots  []string
	logger zerolog.Logger
}

// NewFSLookup creates a filesystem-backed inventory lookup.
func NewFSLookup(fs afero.Fs, roots []string, logger zerolog.Logger) *FSLookup {
	return &FSLookup{
		fs:     fs,
		roots:  roots,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// SeasonExists reports whether the season directory for the series is
// present under any library root. An unreadable root fails the lookup;
// callers treat that as "skip this series", not as a hard error.
func (l *FSLookup) SeasonExists(ctx context.Context, tvdbID int64, season int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	tag := fmt.Sprintf("[tvdbid-%d]", tvdbID)
	for _, root := range l.roots {
		entries, err := afero.ReadDir(l.fs, root)
		if err != nil {
			return false, fmt.Errorf("failed to read library root %s: %w", root, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() || !strings.Contains(entry.Name(), tag) {
				continue
			}
			if l.hasSeasonDir(root+"/"+entry.Name(), season) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (l *FSLookup) hasSeasonDir(seriesDir string, season int) bool {
	for _, name := range []string{
		fmt.Sprintf("Season %02d", season),
		fmt.Sprintf("Season %d", season),
	} {
		if ok, _ := afero.DirExists(l.fs, seriesDir+"/"+name); ok {
			return true
		}
	}
	return false
}

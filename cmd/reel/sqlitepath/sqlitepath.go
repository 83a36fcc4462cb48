// Package sqlitepath locates the SQLite transcript database for commands that
// read stored transcripts without a running server.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no database path was given and none of the
// well known locations exist.
var ErrNotFound = errors.New("could not find reel SQLite database; pass --sqlite")

// Resolve returns override when set, then REEL_SQLITE, then the first
// candidate location that exists on disk.
func Resolve(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("REEL_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range candidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", ErrNotFound
}

// candidates lists lookup locations, most specific first.
func candidates() []string {
	paths := []string{
		filepath.Join(".reel", "reel.sqlite"),
		filepath.Join(".reel", "reel.db"),
		"reel.sqlite",
		"reel.db",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".reel", "reel.sqlite"),
			filepath.Join(home, ".reel", "reel.db"),
		)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, "reel", "reel.sqlite"))
	}

	return paths
}

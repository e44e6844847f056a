// Package prefs persists user intent that should survive a restart even
// when Spotify has not confirmed it yet.
// Preferences are stored in ~/.config/muffle/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds persisted user preferences.
type Prefs struct {
	ShuffleEnabled bool `toml:"shuffle_enabled"`
}

const defaultPrefsPath = "~/.config/muffle/prefs.toml"

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. A missing or unreadable file yields
// the defaults.
func Load(path string) (Prefs, error) {
	var prefs Prefs

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("read prefs: %w", err)
	}

	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Prefs{}, fmt.Errorf("parse prefs: %w", err)
	}
	return prefs, nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// Store caches preferences in memory and writes every change through.
type Store struct {
	mu    sync.Mutex
	path  string
	prefs Prefs
}

// Open loads the preferences at path. Parse errors fall back to defaults
// so a corrupt file never blocks playback.
func Open(path string) *Store {
	p, err := Load(path)
	if err != nil {
		p = Prefs{}
	}
	return &Store{path: path, prefs: p}
}

// ShuffleIntent returns the last shuffle state the user asked for.
func (s *Store) ShuffleIntent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.ShuffleEnabled
}

// SetShuffleIntent records enabled and persists it.
func (s *Store) SetShuffleIntent(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.ShuffleEnabled = enabled
	return Save(s.path, s.prefs)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

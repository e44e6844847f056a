package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Keys of the persisted session file.
const (
	keyAccessToken  = "spotify_access_token"
	keyRefreshToken = "spotify_refresh_token"
	keyExpiresAt    = "spotify_expires_at"
)

// DefaultSessionFileName is the default name for the session file.
const DefaultSessionFileName = "session.json"

// Session is the credential set owned by the Guardian.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ExpiresWithin reports whether the token expires within d of now.
func (s *Session) ExpiresWithin(d time.Duration, now time.Time) bool {
	return !now.Add(d).Before(s.ExpiresAt)
}

// SessionStorage persists the session as three string keys in a JSON file.
type SessionStorage struct {
	path string
}

// NewSessionStorage creates a storage at path.
// If path is empty, uses the default location (~/.config/muffle/session.json).
func NewSessionStorage(path string) (*SessionStorage, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(configDir, "muffle", DefaultSessionFileName)
	}

	return &SessionStorage{path: path}, nil
}

// Save persists a session to disk.
func (s *SessionStorage) Save(session *Session) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	values := map[string]string{
		keyAccessToken:  session.AccessToken,
		keyRefreshToken: session.RefreshToken,
		keyExpiresAt:    strconv.FormatInt(session.ExpiresAt.UnixMilli(), 10),
	}
	if session.RefreshToken == "" {
		delete(values, keyRefreshToken)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Owner only
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load reads the session from disk. A missing file or a missing access
// token key both mean logged out and return nil.
func (s *SessionStorage) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	access := values[keyAccessToken]
	if access == "" {
		return nil, nil
	}

	session := &Session{
		AccessToken:  access,
		RefreshToken: values[keyRefreshToken],
	}
	// An unparseable expiry loads as the zero time and reads as expired.
	if ms, err := strconv.ParseInt(values[keyExpiresAt], 10, 64); err == nil {
		session.ExpiresAt = time.UnixMilli(ms)
	}

	return session, nil
}

// Delete removes the stored session.
func (s *SessionStorage) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Exists returns true if a session file exists.
func (s *SessionStorage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the path to the session file.
func (s *SessionStorage) Path() string {
	return s.path
}

package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.mufflerc, $XDG_CONFIG_HOME/muffle/config.toml, ~/.config/muffle/config.toml
func Load() (*Config, error) {
	cfg := Default()

	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".mufflerc"),
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "muffle", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Spotify
	if v := os.Getenv("MUFFLE_SPOTIFY_CLIENT_ID"); v != "" {
		cfg.Spotify.ClientID = v
	}
	if v := os.Getenv("MUFFLE_SPOTIFY_REDIRECT_URI"); v != "" {
		cfg.Spotify.RedirectURI = v
	}
	if v := os.Getenv("MUFFLE_SPOTIFY_SESSION_FILE"); v != "" {
		cfg.Spotify.SessionFile = v
	}

	// Poll
	if v := os.Getenv("MUFFLE_POLL_INTERVAL_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Poll.IntervalMs = i
		}
	}

	// Engine
	if v := os.Getenv("MUFFLE_ENGINE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.Enabled = b
		}
	}
	if v := os.Getenv("MUFFLE_ENGINE_BINARY"); v != "" {
		cfg.Engine.Binary = v
	}
	if v := os.Getenv("MUFFLE_ENGINE_DEVICE_NAME"); v != "" {
		cfg.Engine.DeviceName = v
	}

	// Log
	if v := os.Getenv("MUFFLE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MUFFLE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// SessionPath returns the session file location, defaulting to the
// user config directory.
func (c *Config) SessionPath() (string, error) {
	if c.Spotify.SessionFile != "" {
		return c.Spotify.SessionFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "muffle", "session.json"), nil
}

package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Spotify   SpotifyConfig   `toml:"spotify"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Poll      PollConfig      `toml:"poll"`
	Player    PlayerConfig    `toml:"player"`
	Engine    EngineConfig    `toml:"engine"`
	Prefs     PrefsConfig     `toml:"prefs"`
	Tail      TailConfig      `toml:"tail"`
	Log       LogConfig       `toml:"log"`
}

// SpotifyConfig holds Spotify API settings.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	APIBaseURL  string `toml:"api_base_url"`
	AuthURL     string `toml:"auth_url"`
	TokenURL    string `toml:"token_url"`
	SessionFile string `toml:"session_file"`
}

// AuthConfig holds token lifecycle settings.
type AuthConfig struct {
	RefreshBufferMs int `toml:"refresh_buffer_ms"`
}

// RateLimitConfig holds settings for the shared rate-limit gate.
type RateLimitConfig struct {
	DefaultRetryAfterMs int `toml:"default_retry_after_ms"`
}

// PollConfig holds playback polling settings.
type PollConfig struct {
	IntervalMs int `toml:"interval_ms"`
	QueueLimit int `toml:"queue_limit"`
}

// PlayerConfig holds the tunables of the optimistic player state and the
// command layer.
type PlayerConfig struct {
	SeekTolerancePct  float64 `toml:"seek_tolerance_pct"`
	PreviewWindowMs   int     `toml:"preview_window_ms"`
	TransitionMs      int     `toml:"transition_ms"`
	ToastMs           int     `toml:"toast_ms"`
	LatchThresholdPct float64 `toml:"latch_threshold_pct"`
	TickMs            int     `toml:"tick_ms"`

	PlayTTLMs         int `toml:"play_ttl_ms"`
	CommandPlayTTLMs  int `toml:"command_play_ttl_ms"`
	SeekTTLMs         int `toml:"seek_ttl_ms"`
	PreviousSeekTTLMs int `toml:"previous_seek_ttl_ms"`
	ShuffleTTLMs      int `toml:"shuffle_ttl_ms"`
	TrackTTLMs        int `toml:"track_ttl_ms"`

	BadGatewayDelayMs int `toml:"bad_gateway_delay_ms"`
	TransferDelayMs   int `toml:"transfer_delay_ms"`
}

// EngineConfig holds local playback engine settings.
type EngineConfig struct {
	Enabled                   bool     `toml:"enabled"`
	Binary                    string   `toml:"binary"`
	Args                      []string `toml:"args"`
	DeviceName                string   `toml:"device_name"`
	ReadyMarker               string   `toml:"ready_marker"`
	DiscoveryTimeoutMs        int      `toml:"discovery_timeout_ms"`
	InitialDiscoveryTimeoutMs int      `toml:"initial_discovery_timeout_ms"`
	DiscoveryIntervalMs       int      `toml:"discovery_interval_ms"`
	ActivateTimeoutMs         int      `toml:"activate_timeout_ms"`
	ActivateIntervalMs        int      `toml:"activate_interval_ms"`
}

// PrefsConfig holds the location of persisted user intent.
type PrefsConfig struct {
	Path string `toml:"path"`
}

// TailConfig holds settings for the watch command.
type TailConfig struct {
	Emoji     bool   `toml:"emoji"`
	Timestamp bool   `toml:"timestamp"`
	Format    string `toml:"format"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Millis converts a millisecond config value to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

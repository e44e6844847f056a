package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Spotify.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("spotify: %w", err))
	}
	if c.Auth.RefreshBufferMs < 0 {
		errs = append(errs, errors.New("auth: refresh_buffer_ms must be non-negative"))
	}
	if c.RateLimit.DefaultRetryAfterMs < 0 {
		errs = append(errs, errors.New("rate_limit: default_retry_after_ms must be non-negative"))
	}
	if err := c.Poll.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("poll: %w", err))
	}
	if err := c.Player.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks SpotifyConfig for errors.
func (c *SpotifyConfig) Validate() error {
	for name, raw := range map[string]string{
		"redirect_uri": c.RedirectURI,
		"api_base_url": c.APIBaseURL,
		"auth_url":     c.AuthURL,
		"token_url":    c.TokenURL,
	} {
		if raw == "" {
			continue
		}
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks PollConfig for errors.
func (c *PollConfig) Validate() error {
	if c.IntervalMs < 0 {
		return errors.New("interval_ms must be non-negative")
	}
	if c.QueueLimit < 0 {
		return errors.New("queue_limit must be non-negative")
	}
	return nil
}

// Validate checks PlayerConfig for errors.
func (c *PlayerConfig) Validate() error {
	if c.SeekTolerancePct < 0 || c.SeekTolerancePct > 100 {
		return errors.New("seek_tolerance_pct must be between 0 and 100")
	}
	if c.LatchThresholdPct < 0 || c.LatchThresholdPct > 100 {
		return errors.New("latch_threshold_pct must be between 0 and 100")
	}
	if c.TickMs < 0 || c.PreviewWindowMs < 0 || c.TransitionMs < 0 || c.ToastMs < 0 {
		return errors.New("durations must be non-negative")
	}
	return nil
}

// Validate checks EngineConfig for errors.
func (c *EngineConfig) Validate() error {
	if c.Enabled && c.Binary == "" {
		return errors.New("binary is required when the engine is enabled")
	}
	if c.DiscoveryIntervalMs < 0 || c.DiscoveryTimeoutMs < 0 {
		return errors.New("discovery timings must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}

package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURI: "http://127.0.0.1:8888/callback",
			APIBaseURL:  "https://api.spotify.com/v1",
			AuthURL:     "https://accounts.spotify.com/authorize",
			TokenURL:    "https://accounts.spotify.com/api/token",
		},
		Auth: AuthConfig{
			RefreshBufferMs: 5 * 60 * 1000,
		},
		RateLimit: RateLimitConfig{
			DefaultRetryAfterMs: 2500,
		},
		Poll: PollConfig{
			IntervalMs: 3000,
			QueueLimit: 20,
		},
		Player: PlayerConfig{
			SeekTolerancePct:  1.25,
			PreviewWindowMs:   15000,
			TransitionMs:      600,
			ToastMs:           1600,
			LatchThresholdPct: 99.5,
			TickMs:            250,
			PlayTTLMs:         4000,
			CommandPlayTTLMs:  5000,
			SeekTTLMs:         5000,
			PreviousSeekTTLMs: 3000,
			ShuffleTTLMs:      4000,
			TrackTTLMs:        4000,
			BadGatewayDelayMs: 350,
			TransferDelayMs:   200,
		},
		Engine: EngineConfig{
			Binary:                    "librespot",
			DeviceName:                "Muffle",
			ReadyMarker:               "Authenticated as",
			DiscoveryTimeoutMs:        10000,
			InitialDiscoveryTimeoutMs: 5000,
			DiscoveryIntervalMs:       1500,
			ActivateTimeoutMs:         12000,
			ActivateIntervalMs:        500,
		},
		Prefs: PrefsConfig{
			Path: "~/.config/muffle/prefs.toml",
		},
		Tail: TailConfig{
			Emoji: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Spotify
	setString(&c.Spotify.RedirectURI, d.Spotify.RedirectURI)
	setString(&c.Spotify.APIBaseURL, d.Spotify.APIBaseURL)
	setString(&c.Spotify.AuthURL, d.Spotify.AuthURL)
	setString(&c.Spotify.TokenURL, d.Spotify.TokenURL)

	setInt(&c.Auth.RefreshBufferMs, d.Auth.RefreshBufferMs)
	setInt(&c.RateLimit.DefaultRetryAfterMs, d.RateLimit.DefaultRetryAfterMs)

	// Poll
	setInt(&c.Poll.IntervalMs, d.Poll.IntervalMs)
	setInt(&c.Poll.QueueLimit, d.Poll.QueueLimit)

	// Player
	p, dp := &c.Player, d.Player
	setFloat(&p.SeekTolerancePct, dp.SeekTolerancePct)
	setInt(&p.PreviewWindowMs, dp.PreviewWindowMs)
	setInt(&p.TransitionMs, dp.TransitionMs)
	setInt(&p.ToastMs, dp.ToastMs)
	setFloat(&p.LatchThresholdPct, dp.LatchThresholdPct)
	setInt(&p.TickMs, dp.TickMs)
	setInt(&p.PlayTTLMs, dp.PlayTTLMs)
	setInt(&p.CommandPlayTTLMs, dp.CommandPlayTTLMs)
	setInt(&p.SeekTTLMs, dp.SeekTTLMs)
	setInt(&p.PreviousSeekTTLMs, dp.PreviousSeekTTLMs)
	setInt(&p.ShuffleTTLMs, dp.ShuffleTTLMs)
	setInt(&p.TrackTTLMs, dp.TrackTTLMs)
	setInt(&p.BadGatewayDelayMs, dp.BadGatewayDelayMs)
	setInt(&p.TransferDelayMs, dp.TransferDelayMs)

	// Engine
	e, de := &c.Engine, d.Engine
	setString(&e.Binary, de.Binary)
	setString(&e.DeviceName, de.DeviceName)
	setString(&e.ReadyMarker, de.ReadyMarker)
	setInt(&e.DiscoveryTimeoutMs, de.DiscoveryTimeoutMs)
	setInt(&e.InitialDiscoveryTimeoutMs, de.InitialDiscoveryTimeoutMs)
	setInt(&e.DiscoveryIntervalMs, de.DiscoveryIntervalMs)
	setInt(&e.ActivateTimeoutMs, de.ActivateTimeoutMs)
	setInt(&e.ActivateIntervalMs, de.ActivateIntervalMs)

	setString(&c.Prefs.Path, d.Prefs.Path)

	// Log
	setString(&c.Log.Level, d.Log.Level)
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

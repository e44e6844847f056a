package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[spotify]
client_id = "abc123"

[poll]
interval_ms = 2500

[player]
seek_tolerance_pct = 2.0

[engine]
enabled = true
device_name = "Desk"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Spotify.ClientID != "abc123" {
		t.Errorf("ClientID = %q, want abc123", cfg.Spotify.ClientID)
	}
	if cfg.Poll.IntervalMs != 2500 {
		t.Errorf("Poll.IntervalMs = %d, want 2500", cfg.Poll.IntervalMs)
	}
	if cfg.Player.SeekTolerancePct != 2.0 {
		t.Errorf("SeekTolerancePct = %v, want 2.0", cfg.Player.SeekTolerancePct)
	}
	if cfg.Player.PreviewWindowMs != 15000 {
		t.Errorf("PreviewWindowMs = %d, want default 15000", cfg.Player.PreviewWindowMs)
	}
	if !cfg.Engine.Enabled || cfg.Engine.DeviceName != "Desk" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Engine.Binary != "librespot" {
		t.Errorf("Engine.Binary = %q, want default librespot", cfg.Engine.Binary)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MUFFLE_SPOTIFY_CLIENT_ID", "from-env")
	t.Setenv("MUFFLE_POLL_INTERVAL_MS", "1000")
	t.Setenv("MUFFLE_ENGINE_ENABLED", "true")
	t.Setenv("MUFFLE_LOG_LEVEL", "debug")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.Spotify.ClientID != "from-env" {
		t.Errorf("ClientID = %q", cfg.Spotify.ClientID)
	}
	if cfg.Poll.IntervalMs != 1000 {
		t.Errorf("IntervalMs = %d", cfg.Poll.IntervalMs)
	}
	if !cfg.Engine.Enabled {
		t.Error("Engine.Enabled = false, want true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Auth.RefreshBufferMs != 300000 {
		t.Errorf("RefreshBufferMs = %d, want 300000", cfg.Auth.RefreshBufferMs)
	}
	if cfg.RateLimit.DefaultRetryAfterMs != 2500 {
		t.Errorf("DefaultRetryAfterMs = %d, want 2500", cfg.RateLimit.DefaultRetryAfterMs)
	}
	if cfg.Player.LatchThresholdPct != 99.5 {
		t.Errorf("LatchThresholdPct = %v, want 99.5", cfg.Player.LatchThresholdPct)
	}
	if got := Millis(cfg.Player.TickMs); got != 250*time.Millisecond {
		t.Errorf("tick = %v, want 250ms", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log:"},
		{name: "bad tolerance", mutate: func(c *Config) { c.Player.SeekTolerancePct = 120 }, wantErr: "player:"},
		{name: "engine without binary", mutate: func(c *Config) {
			c.Engine.Enabled = true
			c.Engine.Binary = ""
		}, wantErr: "engine:"},
		{name: "negative poll", mutate: func(c *Config) { c.Poll.IntervalMs = -1 }, wantErr: "poll:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

package state

import (
	"time"

	"github.com/tessro/muffle/internal/config"
)

// Tunables are the timing and tolerance constants of the store.
type Tunables struct {
	SeekTolerance   float64
	PreviewWindow   time.Duration
	TransitionPulse time.Duration
	ToastDuration   time.Duration
	LatchThreshold  float64
	TickInterval    time.Duration

	// Default TTLs used when a setter is given ttl <= 0.
	PlayTTL    time.Duration
	SeekTTL    time.Duration
	ShuffleTTL time.Duration
	TrackTTL   time.Duration
}

// DefaultTunables returns the stock constants.
func DefaultTunables() Tunables {
	return Tunables{
		SeekTolerance:   1.25,
		PreviewWindow:   15 * time.Second,
		TransitionPulse: 600 * time.Millisecond,
		ToastDuration:   1600 * time.Millisecond,
		LatchThreshold:  99.5,
		TickInterval:    250 * time.Millisecond,
		PlayTTL:         4 * time.Second,
		SeekTTL:         5 * time.Second,
		ShuffleTTL:      4 * time.Second,
		TrackTTL:        4 * time.Second,
	}
}

// TunablesFromConfig reads the [player] section.
func TunablesFromConfig(cfg config.PlayerConfig) Tunables {
	t := DefaultTunables()
	if cfg.SeekTolerancePct > 0 {
		t.SeekTolerance = cfg.SeekTolerancePct
	}
	if cfg.LatchThresholdPct > 0 {
		t.LatchThreshold = cfg.LatchThresholdPct
	}
	setMillis(&t.PreviewWindow, cfg.PreviewWindowMs)
	setMillis(&t.TransitionPulse, cfg.TransitionMs)
	setMillis(&t.ToastDuration, cfg.ToastMs)
	setMillis(&t.TickInterval, cfg.TickMs)
	setMillis(&t.PlayTTL, cfg.PlayTTLMs)
	setMillis(&t.SeekTTL, cfg.SeekTTLMs)
	setMillis(&t.ShuffleTTL, cfg.ShuffleTTLMs)
	setMillis(&t.TrackTTL, cfg.TrackTTLMs)
	return t
}

func setMillis(d *time.Duration, ms int) {
	if ms > 0 {
		*d = config.Millis(ms)
	}
}

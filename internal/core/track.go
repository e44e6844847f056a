package core

import "time"

// Track represents a playable audio track. Identity is ID.
type Track struct {
	ID       string        `json:"id"`
	URI      string        `json:"uri"`
	Name     string        `json:"name"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album"`
	AlbumArt string        `json:"album_art"`
	Duration time.Duration `json:"duration"`
}

// TrackID returns the id of t, or "" when t is nil.
func TrackID(t *Track) string {
	if t == nil {
		return ""
	}
	return t.ID
}

// SameTrack reports whether a and b refer to the same track.
func SameTrack(a, b *Track) bool {
	return TrackID(a) == TrackID(b)
}

// Remaining returns the time left in t at the given progress percentage.
func (t *Track) Remaining(progressPct float64) time.Duration {
	if t == nil {
		return 0
	}
	return time.Duration(float64(t.Duration) * (1 - progressPct/100))
}

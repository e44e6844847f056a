package player

import (
	"testing"
	"time"

	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/spotify/client"
)

func TestConvertTrack(t *testing.T) {
	spotifyTrack := &client.Track{
		ID:         "track123",
		URI:        "spotify:track:track123",
		Name:       "Test Song",
		DurationMS: 180000,
		Artists: []client.Artist{
			{Name: "Artist One"},
			{Name: "Artist Two"},
		},
		Album: client.Album{
			Name: "Test Album",
			Images: []client.Image{
				{URL: "https://i.scdn.co/large.jpg", Width: 640},
				{URL: "https://i.scdn.co/small.jpg", Width: 64},
			},
		},
	}

	got := ConvertTrack(spotifyTrack)

	if got.ID != "track123" {
		t.Errorf("ID = %q, want %q", got.ID, "track123")
	}
	if got.Name != "Test Song" {
		t.Errorf("Name = %q, want %q", got.Name, "Test Song")
	}
	if got.Artist != "Artist One, Artist Two" {
		t.Errorf("Artist = %q, want %q", got.Artist, "Artist One, Artist Two")
	}
	if got.Album != "Test Album" {
		t.Errorf("Album = %q, want %q", got.Album, "Test Album")
	}
	if got.AlbumArt != "https://i.scdn.co/large.jpg" {
		t.Errorf("AlbumArt = %q, want first image", got.AlbumArt)
	}
	if got.Duration != 3*time.Minute {
		t.Errorf("Duration = %v, want 3m", got.Duration)
	}
}

func TestConvertTrackNil(t *testing.T) {
	if ConvertTrack(nil) != nil {
		t.Error("ConvertTrack(nil) should be nil")
	}
}

func TestConvertTrackNoImages(t *testing.T) {
	got := ConvertTrack(&client.Track{ID: "x"})
	if got.AlbumArt != "" {
		t.Errorf("AlbumArt = %q, want empty", got.AlbumArt)
	}
	if got.Artist != "" {
		t.Errorf("Artist = %q, want empty", got.Artist)
	}
}

func TestConvertDevice(t *testing.T) {
	tests := []struct {
		spotifyType string
		want        core.DeviceType
	}{
		{"Computer", core.DeviceTypeComputer},
		{"Smartphone", core.DeviceTypePhone},
		{"Speaker", core.DeviceTypeSpeaker},
		{"TV", core.DeviceTypeTV},
		{"CastAudio", core.DeviceTypeCastAudio},
		{"GameConsole", core.DeviceTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.spotifyType, func(t *testing.T) {
			vol := 42
			d := ConvertDevice(&client.Device{
				ID:            "dev1",
				Name:          "Kitchen",
				Type:          tt.spotifyType,
				IsActive:      true,
				VolumePercent: &vol,
			})
			if d.Type != tt.want {
				t.Errorf("Type = %q, want %q", d.Type, tt.want)
			}
			if d.ID != "dev1" || d.Name != "Kitchen" || !d.IsActive {
				t.Errorf("device = %+v", d)
			}
			if d.Volume == nil || *d.Volume != 42 {
				t.Errorf("Volume = %v, want 42", d.Volume)
			}
		})
	}
}

func TestRepeatMapping(t *testing.T) {
	tests := []struct {
		state string
		mode  core.RepeatMode
	}{
		{"off", core.RepeatOff},
		{"track", core.RepeatOne},
		{"context", core.RepeatAll},
	}
	for _, tt := range tests {
		if got := ConvertRepeat(tt.state); got != tt.mode {
			t.Errorf("ConvertRepeat(%q) = %q, want %q", tt.state, got, tt.mode)
		}
		if got := RepeatState(tt.mode); got != tt.state {
			t.Errorf("RepeatState(%q) = %q, want %q", tt.mode, got, tt.state)
		}
	}
	if got := ConvertRepeat(""); got != core.RepeatOff {
		t.Errorf("ConvertRepeat(\"\") = %q, want off", got)
	}
}

package tail

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tessro/muffle/internal/core"
)

func TestFormatLine(t *testing.T) {
	ts := time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC)
	e := Event{
		Type:      EventTrackChange,
		Timestamp: ts,
		Current:   &core.PlayerState{CurrentTrack: &core.Track{Name: "Song", Artist: "Band"}},
	}

	tests := []struct {
		name string
		opts []FormatterOption
		want string
	}{
		{"default", nil, "🎵 Now playing: Band - Song"},
		{"no emoji", []FormatterOption{WithEmoji(false)}, "Now playing: Band - Song"},
		{"timestamp", []FormatterOption{WithEmoji(false), WithTimestamp(true)}, "13:04:05 Now playing: Band - Song"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewFormatter(tt.opts...).Format(e); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDescriptions(t *testing.T) {
	f := NewFormatter(WithEmoji(false))
	prev := &core.PlayerState{CurrentTrack: &core.Track{Name: "Old", Artist: "Band"}}
	curr := &core.PlayerState{Volume: 40, Shuffle: true, Repeat: core.RepeatOne,
		NextTrack: &core.Track{Name: "Soon"}}

	tests := []struct {
		typ  EventType
		want string
	}{
		{EventTrackSkip, "Skipped: Band - Old"},
		{EventTrackComplete, "Finished: Band - Old"},
		{EventPause, "Paused"},
		{EventVolumeChange, "Volume: 40%"},
		{EventShuffleChange, "Shuffle on"},
		{EventRepeatChange, "Repeat: one"},
		{EventUpNext, "Up next: Soon"},
	}
	for _, tt := range tests {
		got := f.Format(Event{Type: tt.typ, Previous: prev, Current: curr})
		if got != tt.want {
			t.Errorf("Format(%s) = %q, want %q", eventTypeName(tt.typ), got, tt.want)
		}
	}
}

func TestFormatTemplate(t *testing.T) {
	f := NewFormatter(WithTemplate("{{.Type}}|{{.Artist}}|{{.Title}}|{{.Next}}"))
	got := f.Format(Event{
		Type: EventTrackChange,
		Current: &core.PlayerState{
			CurrentTrack: &core.Track{Name: "Song", Artist: "Band"},
			NextTrack:    &core.Track{Name: "After"},
		},
	})
	if got != "track_change|Band|Song|After" {
		t.Errorf("Format() = %q", got)
	}
}

func TestFormatInvalidTemplateFallsBack(t *testing.T) {
	f := NewFormatter(WithTemplate("{{.Nope"), WithEmoji(false))
	got := f.Format(Event{Type: EventPause})
	if got != "Paused" {
		t.Errorf("Format() = %q, want Paused", got)
	}
}

func TestFormatColorKeepsText(t *testing.T) {
	f := NewFormatter(WithEmoji(false), WithColor(true))
	got := f.Format(Event{
		Type:    EventTrackChange,
		Current: &core.PlayerState{CurrentTrack: &core.Track{Name: "Song", Artist: "Band"}},
	})
	if !strings.Contains(got, "Song") || !strings.Contains(got, "Band") {
		t.Errorf("Format() = %q, want track text", got)
	}
}

func TestFormatJSON(t *testing.T) {
	got := FormatJSON(Event{
		Type:      EventVolumeChange,
		Timestamp: time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC),
		Current: &core.PlayerState{
			CurrentTrack: &core.Track{Name: "Song", Artist: "Band", URI: "spotify:track:1"},
			Volume:       30,
		},
	})

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("FormatJSON() = %q is not JSON: %v", got, err)
	}
	if out["type"] != "volume_change" || out["title"] != "Song" || out["volume"] != float64(30) {
		t.Errorf("FormatJSON() = %v", out)
	}
	if _, ok := out["next"]; ok {
		t.Error("empty next should be omitted")
	}
}

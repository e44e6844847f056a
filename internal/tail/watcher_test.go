package tail

import (
	"context"
	"testing"
	"time"

	"github.com/tessro/muffle/internal/core"
)

type chanSource struct {
	ch chan core.PlayerState
}

func (s chanSource) Subscribe() (<-chan core.PlayerState, func()) {
	return s.ch, func() {}
}

func song(id string) *core.Track {
	return &core.Track{ID: id, Name: "Song " + id, Artist: "Artist", Duration: time.Minute}
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestDiffStates(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		prev *core.PlayerState
		curr core.PlayerState
		want []EventType
	}{
		{
			name: "first state with track",
			curr: core.PlayerState{CurrentTrack: song("a")},
			want: []EventType{EventTrackChange},
		},
		{
			name: "first state empty",
			curr: core.PlayerState{},
			want: []EventType{},
		},
		{
			name: "skip",
			prev: &core.PlayerState{CurrentTrack: song("a"), Progress: 40},
			curr: core.PlayerState{CurrentTrack: song("b")},
			want: []EventType{EventTrackSkip, EventTrackChange},
		},
		{
			name: "complete",
			prev: &core.PlayerState{CurrentTrack: song("a"), Progress: 99},
			curr: core.PlayerState{CurrentTrack: song("b")},
			want: []EventType{EventTrackComplete, EventTrackChange},
		},
		{
			name: "pause",
			prev: &core.PlayerState{CurrentTrack: song("a"), IsPlaying: true},
			curr: core.PlayerState{CurrentTrack: song("a")},
			want: []EventType{EventPause},
		},
		{
			name: "resume and volume",
			prev: &core.PlayerState{CurrentTrack: song("a"), Volume: 10},
			curr: core.PlayerState{CurrentTrack: song("a"), IsPlaying: true, Volume: 20},
			want: []EventType{EventResume, EventVolumeChange},
		},
		{
			name: "shuffle and repeat",
			prev: &core.PlayerState{Repeat: core.RepeatOff},
			curr: core.PlayerState{Shuffle: true, Repeat: core.RepeatAll},
			want: []EventType{EventShuffleChange, EventRepeatChange},
		},
		{
			name: "up next",
			prev: &core.PlayerState{CurrentTrack: song("a"), NextTrack: song("b")},
			curr: core.PlayerState{CurrentTrack: song("a"), NextTrack: song("b"), ShowNextPreview: true},
			want: []EventType{EventUpNext},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curr := tt.curr
			got := types(diffStates(tt.prev, &curr, now))
			if len(got) != len(tt.want) {
				t.Fatalf("events = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("events = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestWatcherIgnoresProgressTicks(t *testing.T) {
	src := chanSource{ch: make(chan core.PlayerState, 8)}
	w := NewWatcher(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	a := song("a")
	src.ch <- core.PlayerState{CurrentTrack: a, IsPlaying: true, Progress: 10}
	src.ch <- core.PlayerState{CurrentTrack: a, IsPlaying: true, Progress: 50}
	src.ch <- core.PlayerState{CurrentTrack: a, IsPlaying: true, Progress: 97}
	src.ch <- core.PlayerState{CurrentTrack: song("b"), IsPlaying: true}
	close(src.ch)

	var got []EventType
	for e := range w.Events() {
		got = append(got, e.Type)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []EventType{EventTrackChange, EventTrackComplete, EventTrackChange}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

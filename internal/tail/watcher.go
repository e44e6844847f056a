// Package tail turns player state changes into a stream of playback
// events for the watch command.
package tail

import (
	"context"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/core"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackComplete
	EventTrackSkip
	EventPause
	EventResume
	EventVolumeChange
	EventShuffleChange
	EventRepeatChange
	EventUpNext
)

// Event represents a playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *core.PlayerState
	Current   *core.PlayerState
}

// Source publishes player states.
type Source interface {
	Subscribe() (<-chan core.PlayerState, func())
}

// view is the part of a PlayerState that can produce events. Progress
// ticks leave it unchanged.
type view struct {
	TrackID     string
	NextID      string
	IsPlaying   bool
	Volume      int
	Shuffle     bool
	Repeat      core.RepeatMode
	ShowNext    bool
	QueueSource core.QueueSource
}

func viewOf(s core.PlayerState) view {
	return view{
		TrackID:     core.TrackID(s.CurrentTrack),
		NextID:      core.TrackID(s.NextTrack),
		IsPlaying:   s.IsPlaying,
		Volume:      s.Volume,
		Shuffle:     s.Shuffle,
		Repeat:      s.Repeat,
		ShowNext:    s.ShowNextPreview,
		QueueSource: s.QueueSource,
	}
}

// Watcher follows a state source and emits events.
type Watcher struct {
	source Source
	events chan Event
	now    func() time.Time
	logger *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a new state watcher.
func NewWatcher(source Source, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source: source,
		events: make(chan Event, 16),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns the channel of playback events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run follows the source until ctx is done or the source closes. The
// events channel is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	states, cancel := w.source.Subscribe()
	defer cancel()

	var (
		prev     *core.PlayerState
		lastHash uint64
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case curr, ok := <-states:
			if !ok {
				return nil
			}

			h, err := hashstructure.Hash(viewOf(curr), hashstructure.FormatV2, nil)
			if err != nil {
				w.logger.Debug("state hash failed", zap.Error(err))
			} else if prev != nil && h == lastHash {
				// Progress only; keep the latest for completion checks.
				prev = &curr
				continue
			}
			lastHash = h

			for _, e := range diffStates(prev, &curr, w.now()) {
				select {
				case w.events <- e:
				default:
					w.logger.Debug("event dropped, reader too slow")
				}
			}
			prev = &curr
		}
	}
}

// diffStates compares two states and returns detected events.
func diffStates(prev, curr *core.PlayerState, now time.Time) []Event {
	if curr == nil {
		return nil
	}

	var events []Event
	add := func(t EventType) {
		events = append(events, Event{Type: t, Timestamp: now, Previous: prev, Current: curr})
	}

	// First state
	if prev == nil {
		if curr.HasTrack() {
			add(EventTrackChange)
		}
		return events
	}

	if !core.SameTrack(prev.CurrentTrack, curr.CurrentTrack) {
		switch {
		case prev.HasTrack() && wasCompleted(prev):
			add(EventTrackComplete)
		case prev.HasTrack():
			add(EventTrackSkip)
		}
		if curr.HasTrack() {
			add(EventTrackChange)
		}
	}

	if prev.IsPlaying && !curr.IsPlaying {
		add(EventPause)
	} else if !prev.IsPlaying && curr.IsPlaying {
		add(EventResume)
	}

	if prev.Volume != curr.Volume {
		add(EventVolumeChange)
	}
	if prev.Shuffle != curr.Shuffle {
		add(EventShuffleChange)
	}
	if prev.Repeat != curr.Repeat {
		add(EventRepeatChange)
	}
	if !prev.ShowNextPreview && curr.ShowNextPreview && curr.NextTrack != nil {
		add(EventUpNext)
	}

	return events
}

// wasCompleted returns true if the track likely completed naturally.
func wasCompleted(s *core.PlayerState) bool {
	if s.CurrentTrack == nil || s.CurrentTrack.Duration == 0 {
		return false
	}
	return s.Progress >= 95
}

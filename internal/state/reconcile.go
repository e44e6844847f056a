package state

import (
	"time"

	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/core"
)

// Apply merges a server snapshot into the state, honoring live overrides.
// Applying the same snapshot twice in a row leaves the state unchanged.
func (s *Store) Apply(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	prev := s.state
	next := prev.Clone()

	current, nextTrack, queue := snap.Current, snap.Next, snap.Queue
	progress := snap.ProgressPct
	// reported is false when progress is the store's own value echoed back.
	reported := false

	switch {
	case snap.NowPlayingMissing:
		current, progress = prev.CurrentTrack, prev.Progress
		if s.track.Live(now) {
			nextTrack, queue = prev.NextTrack, prev.Queue
		}
	case !s.adoptTrack(snap.Current, now):
		// A locally initiated track change is still settling.
		current, nextTrack, queue = prev.CurrentTrack, prev.NextTrack, prev.Queue
		progress = prev.Progress
	case snap.Current == nil:
		// Track boundaries can report playing with no item.
		if snap.IsPlaying {
			current = prev.CurrentTrack
		}
		progress = prev.Progress
	default:
		reported = true
	}

	if prev.QueueSource == core.QueueLocal {
		nextTrack, queue = prev.NextTrack, prev.Queue
	}

	trackID := core.TrackID(current)
	if !snap.NowPlayingMissing {
		next.IsPlaying = s.playing.Reconcile(snap.IsPlaying, "", now, Equal[bool])
	}
	switch {
	case reported:
		progress = clamp(s.seek.Reconcile(progress, trackID, now, Within(s.tunables.SeekTolerance)))
	case s.seek.TrackID != "" && s.seek.TrackID != trackID:
		s.seek.Clear()
	}

	if snap.Shuffle != nil {
		next.Shuffle = s.shuffle.Reconcile(*snap.Shuffle, "", now, Equal[bool])
	}
	if snap.Volume != nil {
		next.Volume = *snap.Volume
	}
	if snap.Repeat != nil {
		next.Repeat = *snap.Repeat
	}

	next.CurrentTrack = cloneTrack(current)
	next.NextTrack = cloneTrack(nextTrack)
	next.Queue = append([]core.Track{}, queue...)
	next.Progress = progress

	changed := trackID != "" && trackID != core.TrackID(prev.CurrentTrack)
	s.preview(&next, prev, changed)

	s.state = next
	if changed {
		s.logger.Debug("track changed",
			zap.String("from", core.TrackID(prev.CurrentTrack)),
			zap.String("to", trackID))
		s.onTrackChange(current)
	}

	s.tickBase = now
	s.syncTicking()
	s.publish()
}

// adoptTrack reports whether the server's track may replace the current
// one. While a track override is live only the overridden track is
// accepted, which also confirms and clears the override.
func (s *Store) adoptTrack(server *core.Track, now time.Time) bool {
	if !s.track.Live(now) {
		s.track.Clear()
		return true
	}
	if server != nil && server.ID == s.track.Value {
		s.track.Clear()
		return true
	}
	return false
}

// preview recomputes ShowNextPreview and PeekLatched on next.
func (s *Store) preview(next *core.PlayerState, prev core.PlayerState, changed bool) {
	show := s.showNext(next)

	if show && !prev.ShowNextPreview && next.NextTrack != nil {
		s.lastPeekTrackID = next.NextTrack.ID
	}
	if prev.ShowNextPreview && prev.NextTrack != nil && s.lastPeekTrackID == "" {
		s.lastPeekTrackID = prev.NextTrack.ID
	}

	next.ShowNextPreview = show
	next.PeekLatched = show ||
		(prev.PeekLatched && (next.Progress >= s.tunables.LatchThreshold || changed || prev.IsTransitioning))
}

func (s *Store) showNext(st *core.PlayerState) bool {
	if st.CurrentTrack == nil || st.NextTrack == nil {
		return false
	}
	return st.CurrentTrack.Remaining(st.Progress) <= s.tunables.PreviewWindow
}

// onTrackChange pulses the transition flag and, unless the new track was
// already previewed as next, shows the now-playing toast. Must be called
// with mu held after s.state holds the new track.
func (s *Store) onTrackChange(track *core.Track) {
	if track != nil && (s.lastPeekTrackID == "" || s.lastPeekTrackID != track.ID) {
		s.showToast(track)
	}
	s.pulseTransition()
	s.lastPeekTrackID = ""
}

func (s *Store) pulseTransition() {
	s.stopTimer(&s.transitionTimer, &s.transitionGen)
	s.state.IsTransitioning = true

	gen := s.transitionGen
	s.transitionTimer = s.clock.AfterFunc(s.tunables.TransitionPulse, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.transitionGen || s.closed {
			return
		}
		s.transitionTimer = nil
		s.state.IsTransitioning = false
		s.state.PeekLatched = false
		s.publish()
	})
}

func (s *Store) showToast(track *core.Track) {
	s.stopTimer(&s.toastTimer, &s.toastGen)
	s.state.Toast = &core.Toast{
		ID:       track.ID,
		Name:     track.Name,
		Artist:   track.Artist,
		AlbumArt: track.AlbumArt,
	}
	s.state.ToastKey++

	gen := s.toastGen
	s.toastTimer = s.clock.AfterFunc(s.tunables.ToastDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.toastGen || s.closed {
			return
		}
		s.toastTimer = nil
		s.state.Toast = nil
		s.publish()
	})
}

func cloneTrack(t *core.Track) *core.Track {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

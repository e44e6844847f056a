package state

import (
	"time"

	"github.com/tessro/muffle/internal/core"
)

// SetOptimisticIsPlaying shows v immediately and holds it against server
// facts for ttl (the configured default when ttl <= 0).
func (s *Store) SetOptimisticIsPlaying(v bool, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing.Set(v, ttlOr(ttl, s.tunables.PlayTTL), s.clock.Now())
	s.state.IsPlaying = v
	s.syncTicking()
	s.publish()
}

// ClearOptimisticIsPlaying drops the play/pause override.
func (s *Store) ClearOptimisticIsPlaying() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing.Clear()
}

// SetOptimisticSeek moves progress to pct and holds it for ttl. A
// non-empty trackID binds the override to that track.
func (s *Store) SetOptimisticSeek(pct float64, ttl time.Duration, trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	pct = clamp(pct)
	s.seek.Set(pct, ttlOr(ttl, s.tunables.SeekTTL), now)
	s.seek.TrackID = trackID

	prev := s.state
	s.state.Progress = pct
	s.preview(&s.state, prev, false)
	s.tickBase = now
	s.publish()
}

// ClearOptimisticSeek drops the seek override.
func (s *Store) ClearOptimisticSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seek.Clear()
}

// SetOptimisticShuffle shows v immediately and holds it for ttl.
func (s *Store) SetOptimisticShuffle(v bool, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle.Set(v, ttlOr(ttl, s.tunables.ShuffleTTL), s.clock.Now())
	s.state.Shuffle = v
	s.publish()
}

// ClearOptimisticShuffle drops the shuffle override.
func (s *Store) ClearOptimisticShuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle.Clear()
}

// SetOptimisticTrack advances to track and keeps server polls from
// replacing it for ttl unless they report the same track. When track is
// the queue head it is popped.
func (s *Store) SetOptimisticTrack(track core.Track, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.track.Set(track.ID, ttlOr(ttl, s.tunables.TrackTTL), now)

	prev := s.state
	st := &s.state
	st.CurrentTrack = cloneTrack(&track)
	st.Progress = 0
	st.ShowNextPreview = false
	if len(prev.Queue) > 0 && prev.Queue[0].ID == track.ID {
		st.Queue = append([]core.Track{}, prev.Queue[1:]...)
		st.NextTrack = nil
		if len(st.Queue) > 0 {
			st.NextTrack = cloneTrack(&st.Queue[0])
		}
	}

	if track.ID != core.TrackID(prev.CurrentTrack) {
		s.onTrackChange(st.CurrentTrack)
	}
	s.tickBase = now
	s.syncTicking()
	s.publish()
}

// ClearOptimisticTrack drops the track override.
func (s *Store) ClearOptimisticTrack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track.Clear()
}

// RestoreTrack puts back the track position of an earlier snapshot and
// drops the track and seek overrides. Commands use it to roll back a
// failed next or previous.
func (s *Store) RestoreTrack(prev core.PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track.Clear()
	s.seek.Clear()
	st := &s.state
	st.CurrentTrack = cloneTrack(prev.CurrentTrack)
	st.NextTrack = cloneTrack(prev.NextTrack)
	st.Queue = append([]core.Track{}, prev.Queue...)
	st.Progress = clamp(prev.Progress)
	st.ShowNextPreview = prev.ShowNextPreview
	st.PeekLatched = prev.PeekLatched
	s.tickBase = s.clock.Now()
	s.publish()
}

// SetIsPlaying sets IsPlaying without an override.
func (s *Store) SetIsPlaying(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsPlaying = v
	s.syncTicking()
	s.publish()
}

// SetProgress sets progress without an override.
func (s *Store) SetProgress(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state.Progress = clamp(pct)
	s.preview(&s.state, prev, false)
	s.tickBase = s.clock.Now()
	s.publish()
}

// SetShuffle sets shuffle without an override.
func (s *Store) SetShuffle(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Shuffle = v
	s.publish()
}

// SetVolume sets the volume, clamped to 0..100.
func (s *Store) SetVolume(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Volume = int(clamp(float64(v)))
	s.publish()
}

// SetRepeat sets the repeat mode.
func (s *Store) SetRepeat(mode core.RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Repeat = mode
	s.publish()
}

// SetQueue replaces the upcoming tracks and records who owns them. With
// QueueLocal, server snapshots stop overwriting next and queue.
func (s *Store) SetQueue(source core.QueueSource, next *core.Track, queue []core.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state.QueueSource = source
	s.state.NextTrack = cloneTrack(next)
	s.state.Queue = append([]core.Track{}, queue...)
	s.preview(&s.state, prev, false)
	s.publish()
}

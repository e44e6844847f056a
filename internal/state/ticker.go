package state

// syncTicking starts or stops the progress ticker to match IsPlaying.
// Must be called with mu held.
func (s *Store) syncTicking() {
	if s.state.IsPlaying && !s.closed {
		s.startTicking()
	} else {
		s.stopTicking()
	}
}

func (s *Store) startTicking() {
	if s.tickTimer != nil {
		return
	}
	s.tickBase = s.clock.Now()
	s.scheduleTick()
}

func (s *Store) stopTicking() {
	s.stopTimer(&s.tickTimer, &s.tickGen)
}

func (s *Store) scheduleTick() {
	gen := s.tickGen
	s.tickTimer = s.clock.AfterFunc(s.tunables.TickInterval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.tickGen || s.closed {
			return
		}
		s.tick()
		if s.state.IsPlaying {
			s.scheduleTick()
		} else {
			s.tickTimer = nil
		}
	})
}

// tick advances progress by the wall time elapsed since the baseline.
func (s *Store) tick() {
	now := s.clock.Now()
	elapsed := now.Sub(s.tickBase)
	s.tickBase = now

	st := &s.state
	if st.CurrentTrack == nil || st.CurrentTrack.Duration <= 0 || elapsed <= 0 {
		return
	}
	if st.Progress >= 100 {
		return
	}

	step := float64(elapsed) / float64(st.CurrentTrack.Duration) * 100
	if s.seek.Live(now) {
		s.seek.Value += step
	}

	prevShow := st.ShowNextPreview
	st.Progress = clamp(st.Progress + step)
	show := s.showNext(st)
	if show && !prevShow && st.NextTrack != nil {
		s.lastPeekTrackID = st.NextTrack.ID
	}

	if st.Progress >= 100 {
		// Hold at the end until the server reports the next track.
		st.ShowNextPreview = false
		st.PeekLatched = st.PeekLatched || show
	} else {
		st.ShowNextPreview = show
		st.PeekLatched = show || (st.PeekLatched && st.IsTransitioning)
	}
	s.publish()
}

// Package state holds the single optimistic projection of the player.
// Every mutation goes through the store's lock as an entire-state-in,
// entire-state-out step, and every change is published to subscribers.
package state

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/core"
)

// DefaultVolume is the volume shown before the server reports one.
const DefaultVolume = 80

// Store owns PlayerState and its optimistic overrides.
type Store struct {
	mu    sync.Mutex
	state core.PlayerState

	playing Override[bool]
	seek    Override[float64]
	shuffle Override[bool]
	// track holds the id of a locally initiated track change.
	track Override[string]

	lastPeekTrackID string

	clock    Clock
	tunables Tunables
	logger   *zap.Logger

	tickTimer Timer
	tickGen   int
	tickBase  time.Time

	transitionTimer Timer
	transitionGen   int
	toastTimer      Timer
	toastGen        int

	subs   map[int]chan core.PlayerState
	nextID int
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the store's clock.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithTunables sets the store's constants.
func WithTunables(t Tunables) Option {
	return func(s *Store) {
		s.tunables = t
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a store with an empty player.
func New(opts ...Option) *Store {
	s := &Store{
		state: core.PlayerState{
			Queue:       []core.Track{},
			QueueSource: core.QueueRemote,
			Volume:      DefaultVolume,
			Repeat:      core.RepeatOff,
		},
		clock:    RealClock(),
		tunables: DefaultTunables(),
		logger:   zap.NewNop(),
		subs:     make(map[int]chan core.PlayerState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() core.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Tunables returns the store's constants.
func (s *Store) Tunables() Tunables {
	return s.tunables
}

// Subscribe returns a channel that always holds the latest state after a
// change. Slow readers skip intermediate states. cancel releases it.
func (s *Store) Subscribe() (<-chan core.PlayerState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan core.PlayerState, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.state.Clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Update applies a reducer to the whole state.
func (s *Store) Update(fn func(core.PlayerState) core.PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	next := fn(s.state.Clone())
	next.Progress = clamp(next.Progress)
	if next.Queue == nil {
		next.Queue = []core.Track{}
	}
	s.state = next
	if !core.SameTrack(prev.CurrentTrack, next.CurrentTrack) {
		s.tickBase = s.clock.Now()
	}
	s.syncTicking()
	s.publish()
}

// Close stops timers and closes every subscription.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTicking()
	s.stopTimer(&s.transitionTimer, &s.transitionGen)
	s.stopTimer(&s.toastTimer, &s.toastGen)
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// publish hands the latest state to every subscriber without blocking.
// Must be called with mu held.
func (s *Store) publish() {
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state.Clone()
	}
}

func (s *Store) stopTimer(t *Timer, gen *int) {
	*gen++
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func clamp(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

func ttlOr(ttl, fallback time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return fallback
}

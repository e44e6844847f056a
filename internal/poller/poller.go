// Package poller periodically reconciles the optimistic player state with
// what Spotify reports.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tessro/muffle/internal/core"
	merrors "github.com/tessro/muffle/internal/errors"
	"github.com/tessro/muffle/internal/queue"
	"github.com/tessro/muffle/internal/spotify/client"
	"github.com/tessro/muffle/internal/spotify/player"
	"github.com/tessro/muffle/internal/state"
)

const (
	DefaultInterval   = 3 * time.Second
	DefaultQueueLimit = 20
)

// API is the slice of the Spotify client a tick reads.
type API interface {
	GetCurrentlyPlaying(ctx context.Context) (*client.CurrentlyPlaying, error)
	GetQueue(ctx context.Context) (*client.Queue, error)
	GetPlaybackState(ctx context.Context) (*client.PlaybackState, error)
}

// Tokens resolves the access token before each tick.
type Tokens interface {
	EnsureFreshToken(ctx context.Context) (string, error)
	Invalidate()
}

// Poller runs fetch ticks on a fixed interval. Ticks never overlap: a
// tick that comes due while another is in flight is skipped.
type Poller struct {
	api       API
	tokens    Tokens
	store     *state.Store
	projector *queue.Projector

	interval   time.Duration
	queueLimit int
	logger     *zap.Logger

	// slot holds a token while a tick is in flight.
	slot chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithQueueLimit caps how many remote queue entries are kept.
func WithQueueLimit(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.queueLimit = n
		}
	}
}

// WithProjector wires the local queue, which is resynced on every tick
// while it is authoritative.
func WithProjector(q *queue.Projector) Option {
	return func(p *Poller) {
		p.projector = q
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// New creates a poller feeding store.
func New(api API, tokens Tokens, store *state.Store, opts ...Option) *Poller {
	p := &Poller{
		api:        api,
		tokens:     tokens,
		store:      store,
		interval:   DefaultInterval,
		queueLimit: DefaultQueueLimit,
		logger:     zap.NewNop(),
		slot:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling. A tick runs immediately. Calling Start on a
// running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop stops polling and waits for the loop to exit. An in-flight tick is
// left to finish on its own.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

func (p *Poller) spawn(ctx context.Context) {
	if !p.acquire() {
		p.logger.Debug("poll tick skipped, previous still in flight")
		return
	}
	go func() {
		defer p.release()
		if _, err := p.tick(ctx); err != nil {
			p.logger.Debug("poll tick incomplete", zap.Error(err))
		}
	}()
}

// Refresh runs one tick now. When a tick is already in flight it waits
// for it and then runs its own, since the in-flight one may carry data
// fetched before the caller's change.
func (p *Poller) Refresh(ctx context.Context) {
	select {
	case p.slot <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer p.release()
	if _, err := p.tick(ctx); err != nil {
		p.logger.Debug("refresh incomplete", zap.Error(err))
	}
}

func (p *Poller) acquire() bool {
	select {
	case p.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (p *Poller) release() {
	<-p.slot
}

// Tick fetches the current track, the queue and the player state
// concurrently and applies the result to the store. A failed fetch only
// loses its own part of the snapshot. ran is false when the tick was
// skipped because another was in flight or nobody is logged in.
func (p *Poller) Tick(ctx context.Context) (ran bool, err error) {
	if !p.acquire() {
		return false, nil
	}
	defer p.release()
	return p.tick(ctx)
}

func (p *Poller) tick(ctx context.Context) (bool, error) {
	token, err := p.tokens.EnsureFreshToken(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	prev := p.store.Snapshot()
	local := prev.QueueSource == core.QueueLocal && p.projector != nil

	var (
		current  *client.CurrentlyPlaying
		remoteQ  *client.Queue
		playback *client.PlaybackState
		result   merrors.PartialResult[core.Snapshot]
		mu       sync.Mutex
	)
	record := func(what string, err error) {
		if err == nil {
			return
		}
		if client.IsUnauthorized(err) {
			p.tokens.Invalidate()
		}
		p.logger.Debug("poll fetch failed", zap.String("fetch", what), zap.Error(err))
		mu.Lock()
		result.AddError(err)
		mu.Unlock()
	}

	var g errgroup.Group
	currentOK, queueOK, playbackOK := false, false, false
	g.Go(func() error {
		cp, err := p.api.GetCurrentlyPlaying(ctx)
		record("currently-playing", err)
		current, currentOK = cp, err == nil
		return nil
	})
	if !local {
		g.Go(func() error {
			q, err := p.api.GetQueue(ctx)
			record("queue", err)
			remoteQ, queueOK = q, err == nil
			return nil
		})
	}
	g.Go(func() error {
		ps, err := p.api.GetPlaybackState(ctx)
		record("player", err)
		playback, playbackOK = ps, err == nil
		return nil
	})
	_ = g.Wait()

	// The store already holds optimistic values, so they must never come
	// back in as server facts.
	snap := core.Snapshot{
		Next:              prev.NextTrack,
		Queue:             prev.Queue,
		NowPlayingMissing: !currentOK,
	}

	if currentOK {
		snap.ProgressPct = prev.Progress
		if current != nil {
			snap.IsPlaying = current.IsPlaying
			if current.Item != nil {
				snap.Current = player.ConvertTrack(current.Item)
				if current.Item.DurationMS > 0 {
					snap.ProgressPct = float64(current.ProgressMS) / float64(current.Item.DurationMS) * 100
				}
			}
		}
	}

	if queueOK && remoteQ != nil {
		tracks := player.ConvertTracks(remoteQ.Queue)
		if len(tracks) > p.queueLimit {
			tracks = tracks[:p.queueLimit]
		}
		snap.Queue = tracks
		snap.Next = nil
		if len(tracks) > 0 {
			next := tracks[0]
			snap.Next = &next
		}
	}

	if playbackOK && playback != nil {
		shuffle := playback.ShuffleState
		repeat := player.ConvertRepeat(playback.RepeatState)
		snap.Shuffle = &shuffle
		snap.Repeat = &repeat
		snap.Volume = playback.Device.VolumePercent
		if playback.Device.ID != "" {
			snap.Device = player.ConvertDevice(&playback.Device)
		}
	}

	p.store.Apply(snap)

	if local {
		p.projector.SyncToCurrent(p.store.Snapshot().CurrentTrack)
		tracks := p.projector.Tracks()
		var next *core.Track
		if len(tracks) > 0 {
			next = &tracks[0]
		}
		p.store.SetQueue(core.QueueLocal, next, tracks)
	}

	result.Data = snap
	return true, result.Err()
}

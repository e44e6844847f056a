// Package player is the command layer: every playback command updates the
// optimistic state first, then calls Spotify, and rolls back on failure.
package player

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tessro/muffle/internal/config"
	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/engine"
	merrors "github.com/tessro/muffle/internal/errors"
	"github.com/tessro/muffle/internal/queue"
	"github.com/tessro/muffle/internal/spotify/client"
	"github.com/tessro/muffle/internal/state"
)

// API is the slice of the Spotify client the commands call.
type API interface {
	Play(ctx context.Context, deviceID string, opts *client.PlayOptions) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	Seek(ctx context.Context, positionMs int, deviceID string) error
	SetVolume(ctx context.Context, percent int, deviceID string) error
	SetRepeat(ctx context.Context, state string, deviceID string) error
	SetShuffle(ctx context.Context, state bool, deviceID string) error
	AddToQueue(ctx context.Context, uri string, deviceID string) error
	TransferPlayback(ctx context.Context, deviceID string, play bool) error
}

// Tokens resolves and invalidates the access token.
type Tokens interface {
	EnsureFreshToken(ctx context.Context) (string, error)
	Invalidate()
	ForceReauth(msg string)
}

// Resolver picks devices.
type Resolver interface {
	FirstRunnableDeviceID(ctx context.Context) (string, error)
	ActiveDeviceID(ctx context.Context) string
	Devices(ctx context.Context) ([]core.Device, error)
}

// Engine is the local engine bridge as the commands see it.
type Engine interface {
	Enabled() bool
	Status() engine.Status
	Init(ctx context.Context) error
	Auth(ctx context.Context, accessToken string) error
	DeviceID() string
	RefreshDeviceID(ctx context.Context) string
	PreferredDeviceID() string
	SetPreferred(preferred bool)
}

// Prefs persists the user's shuffle intent.
type Prefs interface {
	ShuffleIntent() bool
	SetShuffleIntent(enabled bool) error
}

// Refresher fetches the server's playback state into the store.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Timings are the command layer's delays and TTLs.
type Timings struct {
	CommandPlayTTL   time.Duration
	PreviousSeekTTL  time.Duration
	BadGatewayDelay  time.Duration
	TransferDelay    time.Duration
	ActivateTimeout  time.Duration
	ActivateInterval time.Duration
}

// DefaultTimings returns the stock timings.
func DefaultTimings() Timings {
	return Timings{
		CommandPlayTTL:   5 * time.Second,
		PreviousSeekTTL:  3 * time.Second,
		BadGatewayDelay:  350 * time.Millisecond,
		TransferDelay:    200 * time.Millisecond,
		ActivateTimeout:  12 * time.Second,
		ActivateInterval: 500 * time.Millisecond,
	}
}

// TimingsFromConfig reads the [player] and [engine] sections.
func TimingsFromConfig(p config.PlayerConfig, e config.EngineConfig) Timings {
	t := DefaultTimings()
	set := func(d *time.Duration, ms int) {
		if ms > 0 {
			*d = config.Millis(ms)
		}
	}
	set(&t.CommandPlayTTL, p.CommandPlayTTLMs)
	set(&t.PreviousSeekTTL, p.PreviousSeekTTLMs)
	set(&t.BadGatewayDelay, p.BadGatewayDelayMs)
	set(&t.TransferDelay, p.TransferDelayMs)
	set(&t.ActivateTimeout, e.ActivateTimeoutMs)
	set(&t.ActivateInterval, e.ActivateIntervalMs)
	return t
}

const (
	opPlay     = "play"
	opPause    = "pause"
	opNext     = "next"
	opPrevious = "previous"
	opSeek     = "seek"
	opShuffle  = "shuffle"
	opRepeat   = "repeat"
	opVolume   = "volume"
	opQueue    = "queue"
	opTransfer = "transfer"
)

// Player implements core.Controller against Spotify.
type Player struct {
	api       API
	tokens    Tokens
	store     *state.Store
	resolver  Resolver
	engine    Engine
	prefs     Prefs
	refresher Refresher
	projector *queue.Projector

	timings Timings
	sleep   func(ctx context.Context, d time.Duration) error
	group   singleflight.Group
	logger  *zap.Logger
}

var _ core.Controller = (*Player)(nil)

// Option configures a Player.
type Option func(*Player)

// WithEngine wires the local engine bridge.
func WithEngine(e Engine) Option {
	return func(p *Player) {
		p.engine = e
	}
}

// WithPrefs wires shuffle intent persistence.
func WithPrefs(pr Prefs) Option {
	return func(p *Player) {
		p.prefs = pr
	}
}

// WithRefresher wires the forced refresh used after failures.
func WithRefresher(r Refresher) Option {
	return func(p *Player) {
		p.refresher = r
	}
}

// WithProjector wires the local queue.
func WithProjector(q *queue.Projector) Option {
	return func(p *Player) {
		p.projector = q
	}
}

// WithTimings overrides the delays and TTLs.
func WithTimings(t Timings) Option {
	return func(p *Player) {
		p.timings = t
	}
}

// WithSleep replaces the delay function, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Player) {
		p.sleep = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Player) {
		p.logger = l
	}
}

// New creates the command layer.
func New(api API, tokens Tokens, store *state.Store, resolver Resolver, opts ...Option) *Player {
	p := &Player{
		api:      api,
		tokens:   tokens,
		store:    store,
		resolver: resolver,
		timings:  DefaultTimings(),
		sleep:    sleepContext,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play resumes playback.
func (p *Player) Play(ctx context.Context) error {
	prev := p.store.Snapshot()
	if !prev.IsPlaying {
		p.store.SetOptimisticIsPlaying(true, 0)
	}
	if err := p.token(ctx); err != nil {
		p.revertPlaying(prev.IsPlaying)
		return err
	}

	err := p.run(ctx, opPlay, func(ctx context.Context) error {
		return p.api.Play(ctx, p.preferredDevice(), nil)
	})
	if err != nil {
		p.revertPlaying(prev.IsPlaying)
		return p.fail(ctx, opPlay, err)
	}
	return nil
}

// Pause pauses playback. With no active device there is nothing to
// pause, so that is not an error.
func (p *Player) Pause(ctx context.Context) error {
	prev := p.store.Snapshot()
	if prev.IsPlaying {
		p.store.SetOptimisticIsPlaying(false, 0)
	}
	if err := p.token(ctx); err != nil {
		p.revertPlaying(prev.IsPlaying)
		return err
	}

	err := p.run(ctx, opPause, func(ctx context.Context) error {
		return p.api.Pause(ctx, p.preferredDevice())
	})
	if err != nil {
		p.revertPlaying(prev.IsPlaying)
		return p.fail(ctx, opPause, err)
	}
	return nil
}

// Next skips to the next track.
func (p *Player) Next(ctx context.Context) error {
	prev := p.store.Snapshot()
	if p.localQueue(prev) {
		return p.stepLocal(ctx, prev, opNext)
	}

	if prev.NextTrack != nil {
		p.store.SetOptimisticTrack(*prev.NextTrack, 0)
		p.store.SetOptimisticIsPlaying(true, p.timings.CommandPlayTTL)
	}
	if err := p.token(ctx); err != nil {
		p.revertTrack(prev)
		return err
	}

	err := p.run(ctx, opNext, func(ctx context.Context) error {
		return p.api.Next(ctx, p.preferredDevice())
	})
	if err != nil {
		p.revertTrack(prev)
		return p.fail(ctx, opNext, err)
	}
	return nil
}

// Previous goes back a track, or to the start of the current one.
func (p *Player) Previous(ctx context.Context) error {
	prev := p.store.Snapshot()
	if p.localQueue(prev) {
		return p.stepLocal(ctx, prev, opPrevious)
	}

	p.store.SetOptimisticSeek(0, p.timings.PreviousSeekTTL, core.TrackID(prev.CurrentTrack))
	p.store.SetOptimisticIsPlaying(true, p.timings.CommandPlayTTL)
	if err := p.token(ctx); err != nil {
		p.revertSeek(prev)
		p.revertPlaying(prev.IsPlaying)
		return err
	}

	err := p.run(ctx, opPrevious, func(ctx context.Context) error {
		return p.api.Previous(ctx, p.preferredDevice())
	})
	if err != nil {
		p.revertSeek(prev)
		p.revertPlaying(prev.IsPlaying)
		return p.fail(ctx, opPrevious, err)
	}
	return nil
}

// stepLocal moves through the local queue and plays the resulting track
// on the engine device.
func (p *Player) stepLocal(ctx context.Context, prev core.PlayerState, op string) error {
	var (
		track core.Track
		ok    bool
	)
	if op == opNext {
		track, ok = p.projector.ConsumeNext(prev.CurrentTrack)
	} else {
		track, ok = p.projector.ConsumePrev(prev.CurrentTrack)
	}
	if !ok {
		return nil
	}

	undo := func() {
		if op == opNext {
			p.projector.ConsumePrev(&track)
		} else {
			p.projector.ConsumeNext(&track)
		}
		p.revertTrack(prev)
		p.syncLocalQueue()
	}

	p.store.SetOptimisticTrack(track, 0)
	p.store.SetOptimisticIsPlaying(true, p.timings.CommandPlayTTL)
	p.syncLocalQueue()
	if err := p.token(ctx); err != nil {
		undo()
		return err
	}

	dev := p.localDevice()
	err := p.run(ctx, op, func(ctx context.Context) error {
		return p.api.Play(ctx, dev, &client.PlayOptions{URIs: []string{track.URI}})
	})
	if err != nil {
		undo()
		return p.fail(ctx, op, err)
	}
	return nil
}

// SeekToPercent seeks within the current track.
func (p *Player) SeekToPercent(ctx context.Context, pct float64) error {
	prev := p.store.Snapshot()
	if prev.CurrentTrack == nil {
		return nil
	}
	if err := p.token(ctx); err != nil {
		return err
	}

	pct = math.Max(0, math.Min(100, pct))
	durMs := int(prev.CurrentTrack.Duration.Milliseconds())
	posMs := lo.Clamp(int(math.Floor(pct/100*float64(durMs))), 0, durMs)

	p.store.SetOptimisticSeek(pct, 0, prev.CurrentTrack.ID)

	dev := p.resolver.ActiveDeviceID(ctx)
	err := p.run(ctx, opSeek, func(ctx context.Context) error {
		return p.api.Seek(ctx, posMs, dev)
	})
	if err != nil {
		p.revertSeek(prev)
		return p.fail(ctx, opSeek, err)
	}
	return nil
}

// SetShuffle turns shuffle on or off. The intent is persisted before the
// server confirms it.
func (p *Player) SetShuffle(ctx context.Context, enabled bool) error {
	prev := p.store.Snapshot().Shuffle
	if prev != enabled {
		p.store.SetOptimisticShuffle(enabled, 0)
	}
	if p.prefs != nil {
		if err := p.prefs.SetShuffleIntent(enabled); err != nil {
			p.logger.Warn("failed to persist shuffle intent", zap.Error(err))
		}
	}

	revert := func() {
		p.store.ClearOptimisticShuffle()
		p.store.SetShuffle(prev)
	}
	if err := p.token(ctx); err != nil {
		revert()
		return err
	}

	err := p.run(ctx, opShuffle, func(ctx context.Context) error {
		return p.api.SetShuffle(ctx, enabled, "")
	})
	if err != nil {
		revert()
		return p.fail(ctx, opShuffle, err)
	}
	return nil
}

// SetRepeat sets the repeat mode.
func (p *Player) SetRepeat(ctx context.Context, mode core.RepeatMode) error {
	prev := p.store.Snapshot().Repeat
	p.store.SetRepeat(mode)
	if err := p.token(ctx); err != nil {
		p.store.SetRepeat(prev)
		return err
	}

	err := p.run(ctx, opRepeat, func(ctx context.Context) error {
		return p.api.SetRepeat(ctx, RepeatState(mode), p.preferredDevice())
	})
	if err != nil {
		p.store.SetRepeat(prev)
		return p.fail(ctx, opRepeat, err)
	}
	return nil
}

// SetVolumePercent sets the volume on the active device.
func (p *Player) SetVolumePercent(ctx context.Context, pct float64) error {
	if err := p.token(ctx); err != nil {
		return err
	}

	volume := lo.Clamp(int(math.Round(pct)), 0, 100)
	p.store.SetVolume(volume)

	dev := p.resolver.ActiveDeviceID(ctx)
	err := p.run(ctx, opVolume, func(ctx context.Context) error {
		return p.api.SetVolume(ctx, volume, dev)
	})
	if err != nil {
		return p.fail(ctx, opVolume, err)
	}
	p.refresh(ctx)
	return nil
}

// PlayTrackURI plays a single track.
func (p *Player) PlayTrackURI(ctx context.Context, uri string) error {
	return p.playRemote(ctx, &client.PlayOptions{URIs: []string{uri}}, false)
}

// PlayContextURI plays an album, playlist or artist from the start.
func (p *Player) PlayContextURI(ctx context.Context, uri string) error {
	return p.playRemote(ctx, &client.PlayOptions{ContextURI: uri}, true)
}

// PlayURIs plays a list of tracks. Empty URIs are dropped.
func (p *Player) PlayURIs(ctx context.Context, uris []string) error {
	clean := lo.Compact(uris)
	if len(clean) == 0 {
		return nil
	}
	return p.playRemote(ctx, &client.PlayOptions{URIs: clean}, false)
}

// PlayPlaylistTrack plays contextURI starting at position.
func (p *Player) PlayPlaylistTrack(ctx context.Context, contextURI string, position int) error {
	return p.playRemote(ctx, &client.PlayOptions{
		ContextURI: contextURI,
		Offset:     &client.PlayOffset{Position: max(0, position)},
	}, true)
}

// playRemote starts playback that Spotify's own queue will continue. For
// contexts the shuffle intent is sent first so the very first track is
// already drawn from the right order.
func (p *Player) playRemote(ctx context.Context, opts *client.PlayOptions, withShuffle bool) error {
	prev := p.store.Snapshot()
	p.store.SetOptimisticIsPlaying(true, p.timings.CommandPlayTTL)
	if err := p.token(ctx); err != nil {
		p.revertPlaying(prev.IsPlaying)
		return err
	}

	if withShuffle {
		p.applyShuffleIntent(ctx)
	}
	p.useRemoteQueue(prev)

	err := p.run(ctx, opPlay, func(ctx context.Context) error {
		return p.api.Play(ctx, p.preferredDevice(), opts)
	})
	if err != nil {
		p.revertPlaying(prev.IsPlaying)
		return p.fail(ctx, opPlay, err)
	}
	return nil
}

func (p *Player) applyShuffleIntent(ctx context.Context) {
	desired := false
	if p.prefs != nil {
		desired = p.prefs.ShuffleIntent()
	}
	err := p.run(ctx, opShuffle, func(ctx context.Context) error {
		return p.api.SetShuffle(ctx, desired, "")
	})
	if err != nil {
		// Playback still starts; the server may already be in the right mode.
		p.logger.Debug("shuffle before play failed", zap.Error(err))
		return
	}
	p.store.SetShuffle(desired)
}

// PlayTracks plays tracks from start with muffle owning the queue. Next
// and previous are then served from the local queue.
func (p *Player) PlayTracks(ctx context.Context, tracks []core.Track, start int) error {
	if p.projector == nil {
		uris := lo.Map(tracks, func(t core.Track, _ int) string { return t.URI })
		return p.PlayURIs(ctx, uris)
	}

	shuffle := p.prefs != nil && p.prefs.ShuffleIntent()
	first, ok := p.projector.SetContext(tracks, start, shuffle)
	if !ok {
		return nil
	}

	prev := p.store.Snapshot()
	p.store.SetOptimisticTrack(first, 0)
	p.store.SetOptimisticIsPlaying(true, p.timings.CommandPlayTTL)
	p.store.SetShuffle(shuffle)
	p.syncLocalQueue()
	if err := p.token(ctx); err != nil {
		p.revertTrack(prev)
		return err
	}

	dev := p.localDevice()
	err := p.run(ctx, opPlay, func(ctx context.Context) error {
		return p.api.Play(ctx, dev, &client.PlayOptions{URIs: []string{first.URI}})
	})
	if err != nil {
		p.projector.Clear()
		p.store.SetQueue(core.QueueRemote, prev.NextTrack, prev.Queue)
		p.revertTrack(prev)
		return p.fail(ctx, opPlay, err)
	}
	return nil
}

// AddToQueue appends track to whichever queue is authoritative.
func (p *Player) AddToQueue(ctx context.Context, track core.Track) error {
	if track.URI == "" {
		return nil
	}
	if p.localQueue(p.store.Snapshot()) {
		p.projector.Enqueue(track)
		p.syncLocalQueue()
		return nil
	}
	if err := p.token(ctx); err != nil {
		return err
	}

	err := p.run(ctx, opQueue, func(ctx context.Context) error {
		return p.api.AddToQueue(ctx, track.URI, p.preferredDevice())
	})
	if err != nil {
		return p.fail(ctx, opQueue, err)
	}
	p.refresh(ctx)
	return nil
}

// GetDevices lists devices, including the local engine when it has not
// registered yet.
func (p *Player) GetDevices(ctx context.Context) ([]core.Device, error) {
	if err := p.token(ctx); err != nil {
		return nil, err
	}
	return p.resolver.Devices(ctx)
}

// TransferToDevice moves playback to deviceID. Transferring to the device
// that is already active without starting playback does nothing.
func (p *Player) TransferToDevice(ctx context.Context, deviceID string, play bool) error {
	if deviceID == "" {
		return merrors.ErrDeviceNotFound
	}
	if err := p.token(ctx); err != nil {
		return err
	}
	if !play && p.resolver.ActiveDeviceID(ctx) == deviceID {
		p.markPreferred(deviceID)
		return nil
	}

	if err := p.api.TransferPlayback(ctx, deviceID, play); err != nil {
		return p.fail(ctx, opTransfer, err)
	}
	p.markPreferred(deviceID)
	p.refresh(ctx)
	return nil
}

// EnsureLocalEngineIsActive makes the engine device the active one unless
// some device already is. Concurrent callers share one attempt.
func (p *Player) EnsureLocalEngineIsActive(ctx context.Context) (string, error) {
	if p.engine == nil || !p.engine.Enabled() {
		return "", merrors.ErrEngineUnavailable
	}
	ch := p.group.DoChan("engine", func() (any, error) {
		return p.activateEngine(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Player) activateEngine(ctx context.Context) (string, error) {
	token, err := p.tokens.EnsureFreshToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", merrors.ErrNotAuthenticated
	}

	if id := p.resolver.ActiveDeviceID(ctx); id != "" {
		return id, nil
	}

	if err := p.engine.Auth(ctx, token); err != nil {
		p.logger.Warn("engine auth failed", zap.Error(err))
	}
	if err := p.engine.Init(ctx); err != nil {
		return "", fmt.Errorf("init engine: %w", err)
	}

	var id string
	attempts := max(1, int(p.timings.ActivateTimeout/max(p.timings.ActivateInterval, time.Millisecond)))
	for i := 0; i < attempts; i++ {
		if id = p.engine.RefreshDeviceID(ctx); id != "" {
			break
		}
		if err := p.sleep(ctx, p.timings.ActivateInterval); err != nil {
			return "", err
		}
	}
	if id == "" {
		return "", merrors.WithSuggestion(merrors.ErrDeviceNotFound,
			"The local engine did not register with Spotify. Run 'muffle engine status'")
	}

	p.engine.SetPreferred(true)
	if err := p.api.TransferPlayback(ctx, id, false); err != nil {
		return "", fmt.Errorf("transfer to engine: %w", err)
	}
	p.logger.Info("local engine active", zap.String("device_id", id))
	return id, nil
}

// run makes one remote call with the retry policy: a bad gateway is
// retried once after a short delay, and a missing active device is
// recovered by transferring to a runnable device and retrying once.
func (p *Player) run(ctx context.Context, op string, call func(ctx context.Context) error) error {
	if err := p.guardEngine(); err != nil {
		return err
	}

	err := call(ctx)
	if err == nil {
		return nil
	}

	switch {
	case client.IsBadGateway(err):
		p.logger.Debug("bad gateway, retrying", zap.String("op", op))
		if serr := p.sleep(ctx, p.timings.BadGatewayDelay); serr != nil {
			return serr
		}
		return call(ctx)

	case client.IsNoActiveDeviceError(err):
		if op == opPause {
			return nil
		}
		target, rerr := p.resolver.FirstRunnableDeviceID(ctx)
		if rerr != nil {
			p.logger.Debug("device resolution failed", zap.Error(rerr))
			return err
		}
		if target == "" {
			return err
		}
		p.logger.Debug("no active device, transferring",
			zap.String("op", op), zap.String("device_id", target))
		if terr := p.api.TransferPlayback(ctx, target, false); terr != nil {
			return terr
		}
		if p.engine != nil && target != p.engine.DeviceID() {
			p.engine.SetPreferred(false)
		}
		if serr := p.sleep(ctx, p.timings.TransferDelay); serr != nil {
			return serr
		}
		return call(ctx)
	}
	return err
}

// guardEngine fails fast while the engine is still coming up.
func (p *Player) guardEngine() error {
	if p.engine == nil || !p.engine.Enabled() {
		return nil
	}
	if p.engine.Status() == engine.StatusStarting {
		return merrors.ErrEngineStarting
	}
	return nil
}

// fail routes auth errors to the token guardian, forces a refresh so the
// store converges on the server's state, and returns the wrapped error.
func (p *Player) fail(ctx context.Context, op string, err error) error {
	switch {
	case client.IsInsufficientScopeError(err):
		p.tokens.ForceReauth("")
	case client.IsUnauthorized(err):
		p.tokens.Invalidate()
	}
	p.logger.Debug("command failed", zap.String("op", op), zap.Error(err))
	p.refresh(ctx)
	return fmt.Errorf("%s: %w", op, err)
}

func (p *Player) refresh(ctx context.Context) {
	if p.refresher != nil {
		p.refresher.Refresh(context.WithoutCancel(ctx))
	}
}

func (p *Player) token(ctx context.Context) error {
	token, err := p.tokens.EnsureFreshToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return merrors.ErrNotAuthenticated
	}
	return nil
}

func (p *Player) revertPlaying(was bool) {
	p.store.ClearOptimisticIsPlaying()
	p.store.SetIsPlaying(was)
}

func (p *Player) revertSeek(prev core.PlayerState) {
	p.store.ClearOptimisticSeek()
	p.store.SetProgress(prev.Progress)
}

func (p *Player) revertTrack(prev core.PlayerState) {
	p.store.RestoreTrack(prev)
	p.revertPlaying(prev.IsPlaying)
}

func (p *Player) preferredDevice() string {
	if p.engine == nil {
		return ""
	}
	return p.engine.PreferredDeviceID()
}

func (p *Player) localDevice() string {
	if p.engine == nil {
		return ""
	}
	if id := p.engine.DeviceID(); id != "" {
		return id
	}
	return p.engine.PreferredDeviceID()
}

func (p *Player) markPreferred(deviceID string) {
	if p.engine == nil {
		return
	}
	p.engine.SetPreferred(deviceID == p.engine.DeviceID())
}

func (p *Player) localQueue(st core.PlayerState) bool {
	return p.projector != nil && st.QueueSource == core.QueueLocal && p.projector.Active()
}

func (p *Player) useRemoteQueue(prev core.PlayerState) {
	if p.projector == nil || prev.QueueSource != core.QueueLocal {
		return
	}
	p.projector.Clear()
	p.store.SetQueue(core.QueueRemote, nil, nil)
}

func (p *Player) syncLocalQueue() {
	tracks := p.projector.Tracks()
	var next *core.Track
	if len(tracks) > 0 {
		next = &tracks[0]
	}
	p.store.SetQueue(core.QueueLocal, next, tracks)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

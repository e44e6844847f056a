package player

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/engine"
	merrors "github.com/tessro/muffle/internal/errors"
	"github.com/tessro/muffle/internal/queue"
	"github.com/tessro/muffle/internal/spotify/client"
	"github.com/tessro/muffle/internal/state"
)

// fakeAPI records calls in order. errs holds queued errors per method;
// each call pops one.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string
	errs  map[string][]error
	play  []*client.PlayOptions
	seeks []int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{errs: make(map[string][]error)}
}

func (f *fakeAPI) fail(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = append(f.errs[method], errs...)
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	method := call
	for i, c := range call {
		if c == ' ' {
			method = call[:i]
			break
		}
	}
	if q := f.errs[method]; len(q) > 0 {
		f.errs[method] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeAPI) count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == method || len(c) > len(method) && c[:len(method)+1] == method+" " {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Play(_ context.Context, deviceID string, opts *client.PlayOptions) error {
	f.mu.Lock()
	f.play = append(f.play, opts)
	f.mu.Unlock()
	return f.record("play " + deviceID)
}

func (f *fakeAPI) Pause(_ context.Context, deviceID string) error {
	return f.record("pause " + deviceID)
}

func (f *fakeAPI) Next(_ context.Context, deviceID string) error {
	return f.record("next " + deviceID)
}

func (f *fakeAPI) Previous(_ context.Context, deviceID string) error {
	return f.record("previous " + deviceID)
}

func (f *fakeAPI) Seek(_ context.Context, positionMs int, deviceID string) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, positionMs)
	f.mu.Unlock()
	return f.record("seek " + deviceID)
}

func (f *fakeAPI) SetVolume(_ context.Context, percent int, deviceID string) error {
	return f.record(fmt.Sprintf("volume %d", percent))
}

func (f *fakeAPI) SetRepeat(_ context.Context, state string, _ string) error {
	return f.record("repeat " + state)
}

func (f *fakeAPI) SetShuffle(_ context.Context, state bool, _ string) error {
	return f.record(fmt.Sprintf("shuffle %t", state))
}

func (f *fakeAPI) AddToQueue(_ context.Context, uri string, _ string) error {
	return f.record("queue " + uri)
}

func (f *fakeAPI) TransferPlayback(_ context.Context, deviceID string, play bool) error {
	return f.record(fmt.Sprintf("transfer %s %t", deviceID, play))
}

type fakeTokens struct {
	token       string
	invalidated atomic.Int32
	reauth      atomic.Int32
}

func (f *fakeTokens) EnsureFreshToken(context.Context) (string, error) { return f.token, nil }
func (f *fakeTokens) Invalidate()                                      { f.invalidated.Add(1) }
func (f *fakeTokens) ForceReauth(string)                               { f.reauth.Add(1) }

type fakeResolver struct {
	runnable string
	active   string
	devices  []core.Device
	resolved atomic.Int32
}

func (f *fakeResolver) FirstRunnableDeviceID(context.Context) (string, error) {
	f.resolved.Add(1)
	return f.runnable, nil
}

func (f *fakeResolver) ActiveDeviceID(context.Context) string { return f.active }

func (f *fakeResolver) Devices(context.Context) ([]core.Device, error) { return f.devices, nil }

type fakePrefs struct {
	shuffle bool
}

func (f *fakePrefs) ShuffleIntent() bool { return f.shuffle }

func (f *fakePrefs) SetShuffleIntent(enabled bool) error {
	f.shuffle = enabled
	return nil
}

type countingRefresher struct {
	n atomic.Int32
}

func (r *countingRefresher) Refresh(context.Context) { r.n.Add(1) }

type fakeEngine struct {
	mu        sync.Mutex
	status    engine.Status
	deviceID  string
	preferred bool
	lookups   int
	appearAt  int
	auths     []string
}

func (f *fakeEngine) Enabled() bool              { return true }
func (f *fakeEngine) Status() engine.Status      { return f.status }
func (f *fakeEngine) Init(context.Context) error { return nil }

func (f *fakeEngine) Auth(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auths = append(f.auths, token)
	return nil
}

func (f *fakeEngine) DeviceID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookups < f.appearAt {
		return ""
	}
	return f.deviceID
}

func (f *fakeEngine) RefreshDeviceID(context.Context) string {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()
	return f.DeviceID()
}

func (f *fakeEngine) PreferredDeviceID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.preferred {
		return ""
	}
	return f.deviceID
}

func (f *fakeEngine) SetPreferred(p bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preferred = p
}

func noActiveDevice(path string) error {
	return &client.APIError{
		Status: http.StatusNotFound,
		Path:   path,
		Reason: "NO_ACTIVE_DEVICE",
	}
}

func badGateway() error {
	return &client.APIError{Status: http.StatusBadGateway, Path: "/me/player/play"}
}

type harness struct {
	api      *fakeAPI
	tokens   *fakeTokens
	resolver *fakeResolver
	prefs    *fakePrefs
	refresh  *countingRefresher
	store    *state.Store
	sleeps   []time.Duration
	player   *Player
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		api:      newFakeAPI(),
		tokens:   &fakeTokens{token: "tok"},
		resolver: &fakeResolver{},
		prefs:    &fakePrefs{},
		refresh:  &countingRefresher{},
		store:    state.New(),
	}
	t.Cleanup(h.store.Close)

	base := []Option{
		WithPrefs(h.prefs),
		WithRefresher(h.refresh),
		WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}),
	}
	h.player = New(h.api, h.tokens, h.store, h.resolver, append(base, opts...)...)
	return h
}

func equalCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %q, want %q", got, want)
		}
	}
}

func TestPauseWithNoActiveDeviceIsNoop(t *testing.T) {
	h := newHarness(t)
	h.resolver.runnable = "phone"
	h.store.SetIsPlaying(true)
	h.api.fail("pause", noActiveDevice("/me/player/pause"))

	if err := h.player.Pause(context.Background()); err != nil {
		t.Fatalf("Pause() error = %v, want nil", err)
	}

	equalCalls(t, h.api.Calls(), []string{"pause "})
	if h.resolver.resolved.Load() != 0 {
		t.Error("pause should not resolve a device")
	}
	if h.store.Snapshot().IsPlaying {
		t.Error("IsPlaying = true after pause")
	}
}

func TestPlayPlaylistTrackSendsShuffleFirst(t *testing.T) {
	h := newHarness(t)
	h.prefs.shuffle = true

	if err := h.player.PlayPlaylistTrack(context.Background(), "spotify:playlist:abc", 3); err != nil {
		t.Fatalf("PlayPlaylistTrack() error = %v", err)
	}

	equalCalls(t, h.api.Calls(), []string{"shuffle true", "play "})

	opts := h.api.play[0]
	if opts.ContextURI != "spotify:playlist:abc" {
		t.Errorf("ContextURI = %q", opts.ContextURI)
	}
	if opts.Offset == nil || opts.Offset.Position != 3 {
		t.Errorf("Offset = %+v, want position 3", opts.Offset)
	}
	if !h.store.Snapshot().Shuffle {
		t.Error("store Shuffle = false after shuffle-before-play")
	}
}

func TestPlayContextShuffleFailureStillPlays(t *testing.T) {
	h := newHarness(t)
	h.api.fail("shuffle", errors.New("boom"))

	if err := h.player.PlayContextURI(context.Background(), "spotify:album:x"); err != nil {
		t.Fatalf("PlayContextURI() error = %v", err)
	}
	equalCalls(t, h.api.Calls(), []string{"shuffle false", "play "})
}

func TestBadGatewayRetriesOnce(t *testing.T) {
	h := newHarness(t)
	h.api.fail("play", badGateway())

	if err := h.player.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if n := h.api.count("play"); n != 2 {
		t.Errorf("play calls = %d, want 2", n)
	}
	if len(h.sleeps) != 1 || h.sleeps[0] != 350*time.Millisecond {
		t.Errorf("sleeps = %v, want [350ms]", h.sleeps)
	}
}

func TestBadGatewayTwiceFails(t *testing.T) {
	h := newHarness(t)
	h.api.fail("play", badGateway(), badGateway())

	err := h.player.Play(context.Background())
	if !client.IsBadGateway(err) {
		t.Fatalf("Play() error = %v, want bad gateway", err)
	}
	if n := h.api.count("play"); n != 2 {
		t.Errorf("play calls = %d, want 2", n)
	}
	if h.store.Snapshot().IsPlaying {
		t.Error("IsPlaying not rolled back")
	}
	if h.refresh.n.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", h.refresh.n.Load())
	}
}

func TestNoActiveDeviceTransfersAndRetries(t *testing.T) {
	h := newHarness(t)
	h.resolver.runnable = "speaker"
	h.api.fail("next", noActiveDevice("/me/player/next"))

	if err := h.player.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	equalCalls(t, h.api.Calls(), []string{"next ", "transfer speaker false", "next "})
	if len(h.sleeps) != 1 || h.sleeps[0] != 200*time.Millisecond {
		t.Errorf("sleeps = %v, want [200ms]", h.sleeps)
	}
}

func TestNoActiveDeviceWithoutCandidateFails(t *testing.T) {
	h := newHarness(t)
	h.api.fail("play", noActiveDevice("/me/player/play"))

	err := h.player.Play(context.Background())
	if !client.IsNoActiveDeviceError(err) {
		t.Fatalf("Play() error = %v, want no active device", err)
	}
	equalCalls(t, h.api.Calls(), []string{"play "})
}

func TestNoActiveDeviceRetriesOnlyOnce(t *testing.T) {
	h := newHarness(t)
	h.resolver.runnable = "speaker"
	h.api.fail("play", noActiveDevice("/me/player/play"), noActiveDevice("/me/player/play"))

	if err := h.player.Play(context.Background()); err == nil {
		t.Fatal("Play() error = nil, want failure after one retry")
	}
	if n := h.api.count("play"); n != 2 {
		t.Errorf("play calls = %d, want 2", n)
	}
}

func TestPlayRollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	h.api.fail("play", &client.APIError{Status: http.StatusInternalServerError, Path: "/me/player/play"})

	if err := h.player.Play(context.Background()); err == nil {
		t.Fatal("Play() error = nil")
	}
	if h.store.Snapshot().IsPlaying {
		t.Error("IsPlaying = true after failed play")
	}

	// The override is gone, so the server's word is taken.
	h.store.Apply(core.Snapshot{IsPlaying: false})
	if h.store.Snapshot().IsPlaying {
		t.Error("stale override survived rollback")
	}
}

func TestSeekRollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	track := core.Track{ID: "t1", URI: "spotify:track:t1", Duration: 200 * time.Second}
	h.store.Apply(core.Snapshot{Current: &track, ProgressPct: 10})
	h.api.fail("seek", errors.New("network down"))

	if err := h.player.SeekToPercent(context.Background(), 50); err == nil {
		t.Fatal("SeekToPercent() error = nil")
	}
	if got := h.store.Snapshot().Progress; got < 9.9 || got > 10.5 {
		t.Errorf("Progress = %v, want ~10", got)
	}
	if len(h.api.seeks) != 1 || h.api.seeks[0] != 100000 {
		t.Errorf("seeks = %v, want [100000]", h.api.seeks)
	}
}

func TestSeekWithoutTrackIsNoop(t *testing.T) {
	h := newHarness(t)
	if err := h.player.SeekToPercent(context.Background(), 50); err != nil {
		t.Fatal(err)
	}
	if len(h.api.Calls()) != 0 {
		t.Errorf("calls = %q, want none", h.api.Calls())
	}
}

func TestNextIsOptimistic(t *testing.T) {
	h := newHarness(t)
	cur := core.Track{ID: "a", Duration: time.Minute}
	nxt := core.Track{ID: "b", Duration: time.Minute}
	h.store.Apply(core.Snapshot{Current: &cur, Next: &nxt, Queue: []core.Track{nxt}})

	if err := h.player.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := h.store.Snapshot()
	if core.TrackID(st.CurrentTrack) != "b" {
		t.Errorf("current = %q, want b", core.TrackID(st.CurrentTrack))
	}
	if !st.IsPlaying {
		t.Error("IsPlaying = false after next")
	}

	// A stale poll still reporting a is ignored.
	h.store.Apply(core.Snapshot{Current: &cur, IsPlaying: true})
	if core.TrackID(h.store.Snapshot().CurrentTrack) != "b" {
		t.Error("stale poll undid next")
	}
}

func TestNextRollsBackTrack(t *testing.T) {
	h := newHarness(t)
	cur := core.Track{ID: "a", Duration: time.Minute}
	nxt := core.Track{ID: "b", Duration: time.Minute}
	h.store.Apply(core.Snapshot{Current: &cur, Next: &nxt, Queue: []core.Track{nxt}})
	h.api.fail("next", errors.New("boom"))

	if err := h.player.Next(context.Background()); err == nil {
		t.Fatal("Next() error = nil")
	}
	st := h.store.Snapshot()
	if core.TrackID(st.CurrentTrack) != "a" || core.TrackID(st.NextTrack) != "b" {
		t.Errorf("state = current %q next %q, want a/b",
			core.TrackID(st.CurrentTrack), core.TrackID(st.NextTrack))
	}
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	h := newHarness(t)
	h.api.fail("play", &client.APIError{Status: http.StatusUnauthorized, Path: "/me/player/play"})

	if err := h.player.Play(context.Background()); err == nil {
		t.Fatal("Play() error = nil")
	}
	if h.tokens.invalidated.Load() != 1 {
		t.Error("token not invalidated on 401")
	}
}

func TestInsufficientScopeForcesReauth(t *testing.T) {
	h := newHarness(t)
	h.api.fail("play", &client.APIError{
		Status:  http.StatusForbidden,
		Path:    "/me/player/play",
		Message: "Insufficient client scope",
	})

	if err := h.player.Play(context.Background()); err == nil {
		t.Fatal("Play() error = nil")
	}
	if h.tokens.reauth.Load() != 1 {
		t.Error("ForceReauth not called on insufficient scope")
	}
}

func TestLoggedOutCommandsFail(t *testing.T) {
	h := newHarness(t)
	h.tokens.token = ""

	err := h.player.Play(context.Background())
	if !errors.Is(err, merrors.ErrNotAuthenticated) {
		t.Fatalf("Play() error = %v, want ErrNotAuthenticated", err)
	}
	if h.store.Snapshot().IsPlaying {
		t.Error("optimistic play not reverted")
	}
	if len(h.api.Calls()) != 0 {
		t.Errorf("calls = %q, want none", h.api.Calls())
	}
}

func TestSetShufflePersistsIntent(t *testing.T) {
	h := newHarness(t)
	h.api.fail("shuffle", errors.New("boom"))

	if err := h.player.SetShuffle(context.Background(), true); err == nil {
		t.Fatal("SetShuffle() error = nil")
	}
	if !h.prefs.shuffle {
		t.Error("intent not persisted")
	}
	if h.store.Snapshot().Shuffle {
		t.Error("shuffle not rolled back")
	}
}

func TestSetVolumeClamps(t *testing.T) {
	h := newHarness(t)
	if err := h.player.SetVolumePercent(context.Background(), 140.4); err != nil {
		t.Fatal(err)
	}
	equalCalls(t, h.api.Calls(), []string{"volume 100"})
	if got := h.store.Snapshot().Volume; got != 100 {
		t.Errorf("Volume = %d, want 100", got)
	}
	if h.refresh.n.Load() != 1 {
		t.Error("volume should force a refresh")
	}
}

func TestSetRepeat(t *testing.T) {
	h := newHarness(t)
	if err := h.player.SetRepeat(context.Background(), core.RepeatOne); err != nil {
		t.Fatal(err)
	}
	equalCalls(t, h.api.Calls(), []string{"repeat track"})
	if h.store.Snapshot().Repeat != core.RepeatOne {
		t.Error("repeat not applied")
	}
}

func TestPlayURIsDropsEmpty(t *testing.T) {
	h := newHarness(t)
	if err := h.player.PlayURIs(context.Background(), []string{"", ""}); err != nil {
		t.Fatal(err)
	}
	if len(h.api.Calls()) != 0 {
		t.Errorf("calls = %q, want none", h.api.Calls())
	}

	if err := h.player.PlayURIs(context.Background(), []string{"spotify:track:a", "", "spotify:track:b"}); err != nil {
		t.Fatal(err)
	}
	if got := h.api.play[0].URIs; len(got) != 2 {
		t.Errorf("URIs = %q, want 2 entries", got)
	}
}

func TestEngineStartingFailsFast(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusStarting}
	h := newHarness(t, WithEngine(eng))

	err := h.player.Play(context.Background())
	if !errors.Is(err, merrors.ErrEngineStarting) {
		t.Fatalf("Play() error = %v, want ErrEngineStarting", err)
	}
	if len(h.api.Calls()) != 0 {
		t.Errorf("calls = %q, want none", h.api.Calls())
	}
}

func TestCommandsTargetPreferredDevice(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady, deviceID: "eng", preferred: true}
	h := newHarness(t, WithEngine(eng))

	if err := h.player.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	equalCalls(t, h.api.Calls(), []string{"play eng"})
}

func TestFallbackClearsPreferredForOtherDevice(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady, deviceID: "eng", preferred: true}
	h := newHarness(t, WithEngine(eng))
	h.resolver.runnable = "phone"
	h.api.fail("play", noActiveDevice("/me/player/play"))

	if err := h.player.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if eng.PreferredDeviceID() != "" {
		t.Error("preferred should be cleared after falling back to another device")
	}
}

func TestTransferToDevice(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady, deviceID: "eng"}
	h := newHarness(t, WithEngine(eng))

	if err := h.player.TransferToDevice(context.Background(), "eng", false); err != nil {
		t.Fatal(err)
	}
	equalCalls(t, h.api.Calls(), []string{"transfer eng false"})
	if eng.PreferredDeviceID() != "eng" {
		t.Error("selecting the engine should mark it preferred")
	}

	// Already active: no second transfer.
	h.resolver.active = "eng"
	if err := h.player.TransferToDevice(context.Background(), "eng", false); err != nil {
		t.Fatal(err)
	}
	if n := h.api.count("transfer"); n != 1 {
		t.Errorf("transfers = %d, want 1", n)
	}
}

func TestEnsureLocalEngineIsActive(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady, deviceID: "eng", appearAt: 3}
	h := newHarness(t, WithEngine(eng))

	id, err := h.player.EnsureLocalEngineIsActive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != "eng" {
		t.Errorf("id = %q, want eng", id)
	}
	equalCalls(t, h.api.Calls(), []string{"transfer eng false"})
	if eng.PreferredDeviceID() != "eng" {
		t.Error("engine not marked preferred")
	}
	if len(h.sleeps) != 2 {
		t.Errorf("sleeps = %d, want 2 polls before the device appeared", len(h.sleeps))
	}
}

func TestEnsureLocalEngineKeepsActiveDevice(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady, deviceID: "eng"}
	h := newHarness(t, WithEngine(eng))
	h.resolver.active = "phone"

	id, err := h.player.EnsureLocalEngineIsActive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != "phone" {
		t.Errorf("id = %q, want phone", id)
	}
	if len(h.api.Calls()) != 0 {
		t.Errorf("calls = %q, want none", h.api.Calls())
	}
}

func TestEnsureLocalEngineTimesOut(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady}
	h := newHarness(t, WithEngine(eng), WithTimings(Timings{
		ActivateTimeout:  2 * time.Second,
		ActivateInterval: 500 * time.Millisecond,
	}))

	_, err := h.player.EnsureLocalEngineIsActive(context.Background())
	if !errors.Is(err, merrors.ErrDeviceNotFound) {
		t.Fatalf("error = %v, want ErrDeviceNotFound", err)
	}
	if len(h.sleeps) != 4 {
		t.Errorf("sleeps = %d, want 4", len(h.sleeps))
	}
}

func TestLocalQueueDrivesNext(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady, deviceID: "eng"}
	proj := queue.New()
	h := newHarness(t, WithEngine(eng), WithProjector(proj))

	tracks := []core.Track{
		{ID: "a", URI: "spotify:track:a", Duration: time.Minute},
		{ID: "b", URI: "spotify:track:b", Duration: time.Minute},
		{ID: "c", URI: "spotify:track:c", Duration: time.Minute},
	}
	if err := h.player.PlayTracks(context.Background(), tracks, 0); err != nil {
		t.Fatal(err)
	}
	st := h.store.Snapshot()
	if st.QueueSource != core.QueueLocal {
		t.Fatalf("QueueSource = %q, want local", st.QueueSource)
	}
	if core.TrackID(st.NextTrack) != "b" {
		t.Errorf("next = %q, want b", core.TrackID(st.NextTrack))
	}

	if err := h.player.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := core.TrackID(h.store.Snapshot().CurrentTrack); got != "b" {
		t.Errorf("current = %q, want b", got)
	}
	if got := h.api.play[len(h.api.play)-1].URIs; len(got) != 1 || got[0] != "spotify:track:b" {
		t.Errorf("played %q, want track b", got)
	}
	if h.api.count("next") != 0 {
		t.Error("local next should not call the remote next endpoint")
	}

	if err := h.player.Previous(context.Background()); err != nil {
		t.Fatal(err)
	}
	st = h.store.Snapshot()
	if core.TrackID(st.CurrentTrack) != "a" || core.TrackID(st.NextTrack) != "b" {
		t.Errorf("after previous: current %q next %q, want a/b",
			core.TrackID(st.CurrentTrack), core.TrackID(st.NextTrack))
	}
}

func TestAddToQueueLocal(t *testing.T) {
	eng := &fakeEngine{status: engine.StatusReady, deviceID: "eng"}
	proj := queue.New()
	h := newHarness(t, WithEngine(eng), WithProjector(proj))

	tracks := []core.Track{{ID: "a", URI: "spotify:track:a", Duration: time.Minute}}
	if err := h.player.PlayTracks(context.Background(), tracks, 0); err != nil {
		t.Fatal(err)
	}
	if err := h.player.AddToQueue(context.Background(), core.Track{ID: "z", URI: "spotify:track:z"}); err != nil {
		t.Fatal(err)
	}
	if h.api.count("queue") != 0 {
		t.Error("local enqueue should not call the remote queue endpoint")
	}
	if got := core.TrackID(h.store.Snapshot().NextTrack); got != "z" {
		t.Errorf("next = %q, want z", got)
	}
}

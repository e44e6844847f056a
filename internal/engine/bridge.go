// Package engine bridges to the locally embedded playback engine and the
// Spotify Connect device it registers.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/core"
	merrors "github.com/tessro/muffle/internal/errors"
)

// Status is the engine lifecycle as seen by the rest of muffle.
type Status string

const (
	StatusUnavailable Status = "unavailable"
	StatusNotFound    Status = "not-found"
	StatusStarting    Status = "starting"
	StatusReady       Status = "ready"
)

// ErrAlreadySubscribed is returned by a second Subscribe.
var ErrAlreadySubscribed = errors.New("engine ready event already subscribed")

// DefaultDeviceName is the Connect name the engine registers under.
const DefaultDeviceName = "Muffle"

// DeviceLister lists the account's Connect devices.
type DeviceLister interface {
	GetDevices(ctx context.Context) ([]core.Device, error)
}

// Bridge tracks the engine's status and its Connect device id.
type Bridge struct {
	mu         sync.Mutex
	status     Status
	deviceID   string
	preferred  bool
	subscribed bool
	stop       chan struct{}
	authToken  string

	control Control
	lister  DeviceLister
	name    string
	onReady func()

	interval    time.Duration
	initialWait time.Duration
	readyWait   time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithDeviceName sets the Connect name to look for.
func WithDeviceName(name string) BridgeOption {
	return func(b *Bridge) {
		if name != "" {
			b.name = name
		}
	}
}

// WithDiscovery sets the device polling interval and the maximum waits at
// startup and after the ready event.
func WithDiscovery(interval, initial, afterReady time.Duration) BridgeOption {
	return func(b *Bridge) {
		if interval > 0 {
			b.interval = interval
		}
		if initial > 0 {
			b.initialWait = initial
		}
		if afterReady > 0 {
			b.readyWait = afterReady
		}
	}
}

// WithBridgeClock replaces time and sleeping, for tests.
func WithBridgeClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) BridgeOption {
	return func(b *Bridge) {
		b.now = now
		b.sleep = sleep
	}
}

// WithBridgeLogger sets the bridge logger.
func WithBridgeLogger(l *zap.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = l
	}
}

// OnReady registers fn to run when the engine device has been found after
// becoming ready.
func OnReady(fn func()) BridgeOption {
	return func(b *Bridge) {
		b.onReady = fn
	}
}

// NewBridge creates a bridge. A nil control means no engine is wired and
// the bridge stays unavailable.
func NewBridge(control Control, lister DeviceLister, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		status:      StatusUnavailable,
		control:     control,
		lister:      lister,
		name:        DefaultDeviceName,
		interval:    1500 * time.Millisecond,
		initialWait: 5 * time.Second,
		readyWait:   10 * time.Second,
		now:         time.Now,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init queries the engine and subscribes to its ready event.
func (b *Bridge) Init(ctx context.Context) error {
	if b.control == nil {
		b.setStatus(StatusUnavailable)
		return nil
	}

	st, err := b.control.Status(ctx)
	if err != nil {
		b.logger.Warn("engine status check failed", zap.Error(err))
		b.setStatus(StatusUnavailable)
		return nil
	}

	if !st.Available {
		b.logger.Info("engine binary not found, using Connect-only mode")
		b.setStatus(StatusNotFound)
		return nil
	}

	switch {
	case st.Ready:
		b.setStatus(StatusReady)
		if id := b.WaitForDevice(ctx, b.initialWait); id != "" {
			b.fireReady()
		}
	case st.Running:
		b.setStatus(StatusStarting)
	}

	if err := b.Subscribe(); err != nil && !errors.Is(err, ErrAlreadySubscribed) {
		return err
	}
	return nil
}

// Subscribe starts listening for the engine's one-shot ready event. Only
// one subscription may be active per bridge.
func (b *Bridge) Subscribe() error {
	if b.control == nil {
		return merrors.ErrEngineUnavailable
	}

	b.mu.Lock()
	if b.subscribed {
		b.mu.Unlock()
		return ErrAlreadySubscribed
	}
	b.subscribed = true
	stop := make(chan struct{})
	b.stop = stop
	b.mu.Unlock()

	ready := b.control.Ready()
	go func() {
		select {
		case <-ready:
		case <-stop:
			return
		}

		b.setStatus(StatusReady)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
		}()

		if id := b.WaitForDevice(ctx, b.readyWait); id != "" {
			b.fireReady()
		}
	}()
	return nil
}

// WaitForDevice polls the device list until the engine device appears or
// maxWait elapses. It returns "" on timeout.
func (b *Bridge) WaitForDevice(ctx context.Context, maxWait time.Duration) string {
	start := b.now()
	for {
		if id := b.RefreshDeviceID(ctx); id != "" {
			return id
		}
		if b.now().Sub(start) >= maxWait {
			return ""
		}
		if err := b.sleep(ctx, b.interval); err != nil {
			return ""
		}
	}
}

// RefreshDeviceID looks the engine device up again. The previous id is
// kept when the lookup finds nothing.
func (b *Bridge) RefreshDeviceID(ctx context.Context) string {
	if dev, ok := b.findDevice(ctx); ok {
		b.mu.Lock()
		b.deviceID = dev.ID
		b.mu.Unlock()
	}
	return b.DeviceID()
}

func (b *Bridge) findDevice(ctx context.Context) (core.Device, bool) {
	if b.lister == nil {
		return core.Device{}, false
	}
	devices, err := b.lister.GetDevices(ctx)
	if err != nil {
		b.logger.Debug("device lookup failed", zap.Error(err))
		return core.Device{}, false
	}
	return lo.Find(devices, func(d core.Device) bool {
		return d.ID != "" && b.Matches(d.Name)
	})
}

// Matches reports whether a device name belongs to the engine.
func (b *Bridge) Matches(name string) bool {
	return name == b.name || strings.Contains(strings.ToLower(name), strings.ToLower(b.name))
}

// Name returns the engine's Connect name.
func (b *Bridge) Name() string {
	return b.name
}

// DeviceID returns the last known engine device id.
func (b *Bridge) DeviceID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deviceID
}

// PreferredDeviceID returns the engine device id only once the user has
// chosen it.
func (b *Bridge) PreferredDeviceID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.preferred {
		return ""
	}
	return b.deviceID
}

// SetPreferred records whether commands should target the engine device.
func (b *Bridge) SetPreferred(preferred bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preferred = preferred
}

// Status returns the current lifecycle status.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Available reports whether the engine is running or about to.
func (b *Bridge) Available() bool {
	st := b.Status()
	return st == StatusReady || st == StatusStarting
}

// Enabled reports whether an engine is wired at all.
func (b *Bridge) Enabled() bool {
	return b.control != nil
}

// Auth signs the engine in with accessToken unless it already uses it.
func (b *Bridge) Auth(ctx context.Context, accessToken string) error {
	if b.control == nil {
		return merrors.ErrEngineUnavailable
	}
	b.mu.Lock()
	unchanged := b.authToken == accessToken
	b.mu.Unlock()
	if unchanged {
		return nil
	}

	if err := b.control.Auth(ctx, accessToken); err != nil {
		return err
	}
	b.mu.Lock()
	b.authToken = accessToken
	b.mu.Unlock()
	return b.resubscribe()
}

// Restart restarts the engine. It is the only way out of not-found.
func (b *Bridge) Restart(ctx context.Context) error {
	if b.control == nil {
		return merrors.ErrEngineUnavailable
	}
	if err := b.control.Restart(ctx); err != nil {
		return err
	}
	return b.resubscribe()
}

func (b *Bridge) resubscribe() error {
	b.unsubscribe()
	b.setStatus(StatusStarting)
	return b.Subscribe()
}

// Disconnect drops the subscription and forgets the device id.
func (b *Bridge) Disconnect() {
	b.unsubscribe()
	b.mu.Lock()
	b.deviceID = ""
	b.authToken = ""
	b.mu.Unlock()
}

func (b *Bridge) unsubscribe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
	b.subscribed = false
}

func (b *Bridge) setStatus(st Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != st {
		b.logger.Debug("engine status", zap.String("from", string(b.status)), zap.String("to", string(st)))
	}
	b.status = st
}

func (b *Bridge) fireReady() {
	if b.onReady != nil {
		b.onReady()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package app assembles muffle's components from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/config"
	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/devices"
	"github.com/tessro/muffle/internal/engine"
	"github.com/tessro/muffle/internal/poller"
	"github.com/tessro/muffle/internal/prefs"
	"github.com/tessro/muffle/internal/queue"
	"github.com/tessro/muffle/internal/spotify/auth"
	"github.com/tessro/muffle/internal/spotify/client"
	"github.com/tessro/muffle/internal/spotify/player"
	"github.com/tessro/muffle/internal/state"
)

// App holds one wired instance of every component.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	OAuth    *auth.OAuth
	Guardian *auth.Guardian
	Client   *client.Client
	Store    *state.Store
	Queue    *queue.Projector
	Prefs    *prefs.Store
	Engine   *engine.Bridge
	Devices  *devices.Resolver
	Poller   *poller.Poller
	Player   *player.Player

	control *engine.ProcessControl
	watcher *auth.SessionWatcher
}

// Option adjusts how an App is built. Tests use it to point the
// Spotify client at a fake server.
type Option func(*buildOptions)

type buildOptions struct {
	clientOpts []client.Option
	oauthOpts  []auth.OAuthOption
	noEngine   bool
}

// WithClientOptions appends options for the Web API client.
func WithClientOptions(opts ...client.Option) Option {
	return func(b *buildOptions) {
		b.clientOpts = append(b.clientOpts, opts...)
	}
}

// WithOAuthOptions appends options for the OAuth client.
func WithOAuthOptions(opts ...auth.OAuthOption) Option {
	return func(b *buildOptions) {
		b.oauthOpts = append(b.oauthOpts, opts...)
	}
}

// WithoutEngineProcess never spawns the engine binary, even when enabled
// in config. The bridge still looks for an externally started device.
func WithoutEngineProcess() Option {
	return func(b *buildOptions) {
		b.noEngine = true
	}
}

// New wires all components. Nothing is started; see Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	a := &App{Config: cfg, Logger: logger}

	sessionPath, err := cfg.SessionPath()
	if err != nil {
		return nil, fmt.Errorf("resolve session path: %w", err)
	}
	storage, err := auth.NewSessionStorage(sessionPath)
	if err != nil {
		return nil, err
	}

	oauthOpts := append([]auth.OAuthOption{
		auth.WithEndpoints(cfg.Spotify.AuthURL, cfg.Spotify.TokenURL),
	}, bo.oauthOpts...)
	a.OAuth = auth.NewOAuth(cfg.Spotify.ClientID, cfg.Spotify.RedirectURI, oauthOpts...)

	a.Guardian, err = auth.NewGuardian(storage, a.OAuth,
		auth.WithRefreshBuffer(config.Millis(cfg.Auth.RefreshBufferMs)),
		auth.WithGuardianLogger(logger.Named("auth")),
	)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	gate := client.NewGate(client.WithDefaultRetryAfter(config.Millis(cfg.RateLimit.DefaultRetryAfterMs)))
	clientOpts := append([]client.Option{
		client.WithBaseURL(cfg.Spotify.APIBaseURL),
		client.WithGate(gate),
		client.WithLogger(logger.Named("spotify")),
	}, bo.clientOpts...)
	a.Client = client.New(a.Guardian, clientOpts...)

	a.Store = state.New(
		state.WithTunables(state.TunablesFromConfig(cfg.Player)),
		state.WithLogger(logger.Named("state")),
	)

	queueLog := logger.Named("queue")
	a.Queue = queue.New(queue.OnChange(func(next *core.Track, upcoming []core.Track) {
		queueLog.Debug("local queue changed",
			zap.String("next", core.TrackID(next)),
			zap.Int("upcoming", len(upcoming)))
	}))

	a.Prefs = prefs.Open(cfg.Prefs.Path)

	lister := devices.NewRemoteLister(a.Client)

	// A nil *ProcessControl must not reach the bridge as a non-nil interface.
	var control engine.Control
	if cfg.Engine.Enabled && !bo.noEngine {
		a.control = engine.NewProcessControl(cfg.Engine, logger.Named("engine"))
		control = a.control
	}
	a.Engine = engine.NewBridge(control, lister,
		engine.WithDeviceName(cfg.Engine.DeviceName),
		engine.WithDiscovery(
			config.Millis(cfg.Engine.DiscoveryIntervalMs),
			config.Millis(cfg.Engine.InitialDiscoveryTimeoutMs),
			config.Millis(cfg.Engine.DiscoveryTimeoutMs),
		),
		engine.WithBridgeLogger(logger.Named("engine")),
		engine.OnReady(a.onEngineReady),
	)

	a.Devices = devices.NewResolver(lister, a.Engine, logger.Named("devices"))

	a.Poller = poller.New(a.Client, a.Guardian, a.Store,
		poller.WithInterval(config.Millis(cfg.Poll.IntervalMs)),
		poller.WithQueueLimit(cfg.Poll.QueueLimit),
		poller.WithProjector(a.Queue),
		poller.WithLogger(logger.Named("poller")),
	)

	a.Player = player.New(a.Client, a.Guardian, a.Store, a.Devices,
		player.WithEngine(a.Engine),
		player.WithPrefs(a.Prefs),
		player.WithRefresher(a.Poller),
		player.WithProjector(a.Queue),
		player.WithTimings(player.TimingsFromConfig(cfg.Player, cfg.Engine)),
		player.WithLogger(logger.Named("player")),
	)

	a.Guardian.OnLogout(a.onLogout)

	return a, nil
}

// Sync runs one poll so the store reflects the server before a command.
func (a *App) Sync(ctx context.Context) {
	a.Poller.Refresh(ctx)
}

// Start begins background work for long-running sessions: the session
// file watcher, the engine and the poll loop.
func (a *App) Start(ctx context.Context) error {
	w, err := auth.WatchSession(a.Guardian, a.Logger.Named("auth"))
	if err != nil {
		a.Logger.Warn("session file watch unavailable", zap.Error(err))
	} else {
		a.watcher = w
	}

	if err := a.StartEngine(ctx); err != nil {
		a.Logger.Warn("engine start failed", zap.Error(err))
	}

	a.Poller.Start(ctx)
	return nil
}

// StartEngine initializes the engine bridge when the engine is enabled.
func (a *App) StartEngine(ctx context.Context) error {
	if !a.Engine.Enabled() {
		return nil
	}
	return a.Engine.Init(ctx)
}

// Close stops background work and releases resources.
func (a *App) Close() {
	a.Poller.Stop()
	a.Engine.Disconnect()
	if a.control != nil {
		a.control.Stop()
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	a.Store.Close()
	_ = a.Logger.Sync()
}

func (a *App) onEngineReady() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			config.Millis(a.Config.Engine.ActivateTimeoutMs)*2)
		defer cancel()
		id, err := a.Player.EnsureLocalEngineIsActive(ctx)
		if err != nil {
			a.Logger.Warn("engine activation failed", zap.Error(err))
			return
		}
		a.Logger.Info("engine active", zap.String("device_id", id))
	}()
}

func (a *App) onLogout(reason string) {
	a.Logger.Warn("logged out", zap.String("reason", reason))
	a.Poller.Stop()
	a.Engine.Disconnect()
}

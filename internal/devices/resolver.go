// Package devices picks a playback target when the account has no active
// device.
package devices

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/spotify/client"
	"github.com/tessro/muffle/internal/spotify/player"
)

// SpotifyDevices is the slice of the API client the lister needs.
type SpotifyDevices interface {
	GetDevices(ctx context.Context) ([]client.Device, error)
}

// RemoteLister lists Connect devices as core devices.
type RemoteLister struct {
	api SpotifyDevices
}

// NewRemoteLister wraps api.
func NewRemoteLister(api SpotifyDevices) *RemoteLister {
	return &RemoteLister{api: api}
}

// GetDevices fetches the account's Connect devices.
func (l *RemoteLister) GetDevices(ctx context.Context) ([]core.Device, error) {
	devices, err := l.api.GetDevices(ctx)
	if err != nil {
		return nil, err
	}
	return player.ConvertDevices(devices), nil
}

// Lister lists Connect devices.
type Lister interface {
	GetDevices(ctx context.Context) ([]core.Device, error)
}

// Engine is the view of the local engine the resolver needs.
type Engine interface {
	RefreshDeviceID(ctx context.Context) string
	PreferredDeviceID() string
	Matches(name string) bool
	Name() string
	Enabled() bool
}

// Resolver chooses a device for commands that failed with no active
// device.
type Resolver struct {
	lister Lister
	engine Engine
	logger *zap.Logger
}

// NewResolver creates a resolver. engine may be nil.
func NewResolver(lister Lister, engine Engine, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lister: lister, engine: engine, logger: logger}
}

// FirstRunnableDeviceID picks, in order: the active device, the engine's
// device, any device named like the engine, the engine's preferred device,
// then any device. It returns "" when there is nothing to play on.
func (r *Resolver) FirstRunnableDeviceID(ctx context.Context) (string, error) {
	devices, err := r.lister.GetDevices(ctx)
	if err != nil {
		return "", err
	}
	devices = lo.Filter(devices, func(d core.Device, _ int) bool { return d.ID != "" })

	if d, ok := lo.Find(devices, func(d core.Device) bool { return d.IsActive }); ok {
		return r.pick("active", d.ID), nil
	}

	if r.engine != nil {
		if id := r.engine.RefreshDeviceID(ctx); id != "" {
			return r.pick("engine", id), nil
		}
		if d, ok := lo.Find(devices, func(d core.Device) bool { return r.engine.Matches(d.Name) }); ok {
			return r.pick("engine name", d.ID), nil
		}
		if id := r.engine.PreferredDeviceID(); id != "" {
			return r.pick("preferred", id), nil
		}
	}

	if len(devices) > 0 {
		return r.pick("first", devices[0].ID), nil
	}
	return "", nil
}

func (r *Resolver) pick(reason, id string) string {
	r.logger.Debug("resolved device", zap.String("reason", reason), zap.String("device_id", id))
	return id
}

// ActiveDeviceID returns the active device's id, or "".
func (r *Resolver) ActiveDeviceID(ctx context.Context) string {
	devices, err := r.lister.GetDevices(ctx)
	if err != nil {
		return ""
	}
	d, _ := lo.Find(devices, func(d core.Device) bool { return d.IsActive })
	return d.ID
}

// Devices lists Connect devices. When an engine is wired but has not
// registered yet, a placeholder for it is listed first.
func (r *Resolver) Devices(ctx context.Context) ([]core.Device, error) {
	devices, err := r.lister.GetDevices(ctx)
	if err != nil {
		return nil, err
	}
	if r.engine == nil || !r.engine.Enabled() {
		return devices, nil
	}
	if lo.ContainsBy(devices, func(d core.Device) bool { return r.engine.Matches(d.Name) }) {
		return devices, nil
	}

	local := core.Device{
		ID:    r.engine.RefreshDeviceID(ctx),
		Name:  r.engine.Name(),
		Type:  core.DeviceTypeComputer,
		Local: true,
	}
	return append([]core.Device{local}, devices...), nil
}

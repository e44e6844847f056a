package core

import "context"

// Controller is the command surface consumed by user interfaces.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SeekToPercent(ctx context.Context, pct float64) error
	SetShuffle(ctx context.Context, enabled bool) error
	SetRepeat(ctx context.Context, mode RepeatMode) error
	SetVolumePercent(ctx context.Context, pct float64) error

	PlayTrackURI(ctx context.Context, uri string) error
	PlayContextURI(ctx context.Context, uri string) error
	PlayURIs(ctx context.Context, uris []string) error
	PlayPlaylistTrack(ctx context.Context, contextURI string, position int) error
	AddToQueue(ctx context.Context, track Track) error

	GetDevices(ctx context.Context) ([]Device, error)
	TransferToDevice(ctx context.Context, deviceID string, play bool) error
}

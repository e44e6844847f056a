package client

import (
	"context"
	"strconv"
)

// PlayOptions configures a play request.
type PlayOptions struct {
	ContextURI string      `json:"context_uri,omitempty"`
	URIs       []string    `json:"uris,omitempty"`
	Offset     *PlayOffset `json:"offset,omitempty"`
	PositionMS int         `json:"position_ms"`
}

// PlayOffset specifies where to start playback in a context.
type PlayOffset struct {
	Position int    `json:"position"`
	URI      string `json:"uri,omitempty"`
}

// Play starts or resumes playback. A nil opts resumes; an empty deviceID
// targets the active device.
func (c *Client) Play(ctx context.Context, deviceID string, opts *PlayOptions) error {
	path := withDevice("/me/player/play", deviceID, nil)
	if opts == nil {
		return c.Put(ctx, path, nil, nil)
	}
	return c.Put(ctx, path, opts, nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/pause", deviceID, nil), nil, nil)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context, deviceID string) error {
	return c.Post(ctx, withDevice("/me/player/next", deviceID, nil), nil, nil)
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context, deviceID string) error {
	return c.Post(ctx, withDevice("/me/player/previous", deviceID, nil), nil, nil)
}

// Seek seeks to a position in the current track.
func (c *Client) Seek(ctx context.Context, positionMs int, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/seek", deviceID, map[string]string{
		"position_ms": strconv.Itoa(positionMs),
	}), nil, nil)
}

// SetVolume sets the playback volume (0-100).
func (c *Client) SetVolume(ctx context.Context, percent int, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/volume", deviceID, map[string]string{
		"volume_percent": strconv.Itoa(percent),
	}), nil, nil)
}

// SetRepeat sets the repeat mode (off, track, context).
func (c *Client) SetRepeat(ctx context.Context, state string, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/repeat", deviceID, map[string]string{
		"state": state,
	}), nil, nil)
}

// SetShuffle sets the shuffle mode.
func (c *Client) SetShuffle(ctx context.Context, state bool, deviceID string) error {
	return c.Put(ctx, withDevice("/me/player/shuffle", deviceID, map[string]string{
		"state": strconv.FormatBool(state),
	}), nil, nil)
}

// AddToQueue adds a track to the playback queue.
func (c *Client) AddToQueue(ctx context.Context, uri string, deviceID string) error {
	return c.Post(ctx, withDevice("/me/player/queue", deviceID, map[string]string{
		"uri": uri,
	}), nil, nil)
}

// TransferPlayback transfers playback to a different device.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	body := map[string]interface{}{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	return c.Put(ctx, "/me/player", body, nil)
}

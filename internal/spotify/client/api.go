package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// GetCurrentUser returns the current user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetDevices returns the user's available playback devices.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	var resp DevicesResponse
	if err := c.Get(ctx, "/me/player/devices", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// GetPlaybackState returns the full player state, or nil when nothing is
// playing (204).
func (c *Client) GetPlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state PlaybackState
	status, err := c.request(ctx, http.MethodGet, "/me/player", nil, &state)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &state, nil
}

// GetCurrentlyPlaying returns the currently playing item, or nil when
// nothing is playing (204). Item may be nil around track boundaries even
// while IsPlaying is true.
func (c *Client) GetCurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error) {
	var cp CurrentlyPlaying
	status, err := c.request(ctx, http.MethodGet, "/me/player/currently-playing", nil, &cp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &cp, nil
}

// GetQueue returns the user's playback queue.
func (c *Client) GetQueue(ctx context.Context) (*Queue, error) {
	var queue Queue
	if err := c.Get(ctx, "/me/player/queue", &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// SearchType represents a type of Spotify content to search.
type SearchType string

const (
	SearchTypeTrack    SearchType = "track"
	SearchTypeArtist   SearchType = "artist"
	SearchTypeAlbum    SearchType = "album"
	SearchTypePlaylist SearchType = "playlist"
)

// SearchOptions configures a search query.
type SearchOptions struct {
	Query  string
	Types  []SearchType
	Limit  int
	Offset int
	Market string
}

// Search performs a search query.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (*SearchResponse, error) {
	if opts.Query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	types := make([]string, len(opts.Types))
	for i, t := range opts.Types {
		types[i] = string(t)
	}
	if len(types) == 0 {
		types = []string{"track"}
	}

	params := map[string]string{
		"q":    opts.Query,
		"type": strings.Join(types, ","),
	}

	if opts.Limit > 0 {
		params["limit"] = strconv.Itoa(opts.Limit)
	}
	if opts.Offset > 0 {
		params["offset"] = strconv.Itoa(opts.Offset)
	}
	if opts.Market != "" {
		params["market"] = opts.Market
	}

	var resp SearchResponse
	if err := c.Get(ctx, BuildURL("/search", params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

package client

// User represents a Spotify user profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country"`
	Product     string  `json:"product"`
	URI         string  `json:"uri"`
	Images      []Image `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Device represents a Spotify Connect device.
type Device struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	IsActive       bool   `json:"is_active"`
	IsRestricted   bool   `json:"is_restricted"`
	VolumePercent  *int   `json:"volume_percent"`
	SupportsVolume bool   `json:"supports_volume"`
}

// DevicesResponse is the response from the devices endpoint.
type DevicesResponse struct {
	Devices []Device `json:"devices"`
}

// PlaybackState represents the full player state from /me/player.
type PlaybackState struct {
	Device       Device   `json:"device"`
	ShuffleState bool     `json:"shuffle_state"`
	RepeatState  string   `json:"repeat_state"` // off, track, context
	Timestamp    int64    `json:"timestamp"`
	ProgressMS   int      `json:"progress_ms"`
	IsPlaying    bool     `json:"is_playing"`
	Item         *Track   `json:"item"`
	Context      *Context `json:"context"`
}

// CurrentlyPlaying is the response from /me/player/currently-playing.
type CurrentlyPlaying struct {
	Timestamp            int64    `json:"timestamp"`
	ProgressMS           int      `json:"progress_ms"`
	IsPlaying            bool     `json:"is_playing"`
	Item                 *Track   `json:"item"`
	CurrentlyPlayingType string   `json:"currently_playing_type"`
	Context              *Context `json:"context"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	IsPlayable bool     `json:"is_playable"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URI         string   `json:"uri"`
	ReleaseDate string   `json:"release_date"`
	Images      []Image  `json:"images"`
	Artists     []Artist `json:"artists"`
}

// Context represents a playback context (album, artist, playlist).
type Context struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// SearchResponse represents the response from a search query.
type SearchResponse struct {
	Tracks    *Page[Track]    `json:"tracks"`
	Artists   *Page[Artist]   `json:"artists"`
	Albums    *Page[Album]    `json:"albums"`
	Playlists *Page[Playlist] `json:"playlists"`
}

// Page is one page of a paged result.
type Page[T any] struct {
	Items  []T    `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Next   string `json:"next"`
}

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	URI         string  `json:"uri"`
	Description string  `json:"description"`
	Images      []Image `json:"images"`
	Owner       User    `json:"owner"`
}

// Queue represents the user's playback queue.
type Queue struct {
	CurrentlyPlaying *Track  `json:"currently_playing"`
	Queue            []Track `json:"queue"`
}

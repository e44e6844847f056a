package player

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/spotify/client"
)

// ConvertTrack converts a Spotify track to a core track.
func ConvertTrack(t *client.Track) *core.Track {
	if t == nil {
		return nil
	}

	artists := lo.Map(t.Artists, func(a client.Artist, _ int) string { return a.Name })

	art := ""
	if len(t.Album.Images) > 0 {
		art = t.Album.Images[0].URL
	}

	return &core.Track{
		ID:       t.ID,
		URI:      t.URI,
		Name:     t.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    t.Album.Name,
		AlbumArt: art,
		Duration: time.Duration(t.DurationMS) * time.Millisecond,
	}
}

// ConvertTracks converts a slice of Spotify tracks.
func ConvertTracks(tracks []client.Track) []core.Track {
	return lo.Map(tracks, func(t client.Track, _ int) core.Track { return *ConvertTrack(&t) })
}

// ConvertDevice converts a Spotify device to a core device.
func ConvertDevice(d *client.Device) *core.Device {
	if d == nil {
		return nil
	}

	deviceType := core.DeviceTypeUnknown
	switch d.Type {
	case "Computer":
		deviceType = core.DeviceTypeComputer
	case "Smartphone":
		deviceType = core.DeviceTypePhone
	case "Speaker":
		deviceType = core.DeviceTypeSpeaker
	case "TV":
		deviceType = core.DeviceTypeTV
	case "CastAudio":
		deviceType = core.DeviceTypeCastAudio
	}

	return &core.Device{
		ID:       d.ID,
		Name:     d.Name,
		Type:     deviceType,
		IsActive: d.IsActive,
		Volume:   d.VolumePercent,
	}
}

// ConvertDevices converts a slice of Spotify devices.
func ConvertDevices(devices []client.Device) []core.Device {
	return lo.Map(devices, func(d client.Device, _ int) core.Device { return *ConvertDevice(&d) })
}

// ConvertRepeat maps Spotify's repeat_state to a RepeatMode.
func ConvertRepeat(state string) core.RepeatMode {
	switch state {
	case "track":
		return core.RepeatOne
	case "context":
		return core.RepeatAll
	default:
		return core.RepeatOff
	}
}

// RepeatState maps a RepeatMode to Spotify's repeat_state.
func RepeatState(mode core.RepeatMode) string {
	switch mode {
	case core.RepeatOne:
		return "track"
	case core.RepeatAll:
		return "context"
	default:
		return "off"
	}
}

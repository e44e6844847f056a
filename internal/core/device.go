package core

// DeviceType indicates the kind of playback device.
type DeviceType string

const (
	DeviceTypeComputer  DeviceType = "computer"
	DeviceTypeSpeaker   DeviceType = "speaker"
	DeviceTypePhone     DeviceType = "phone"
	DeviceTypeTV        DeviceType = "tv"
	DeviceTypeCastAudio DeviceType = "cast_audio"
	DeviceTypeUnknown   DeviceType = "unknown"
)

// Device represents a playback target. Devices are fetched on demand and
// never cached beyond a single resolution.
type Device struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     DeviceType `json:"type"`
	IsActive bool       `json:"is_active"`
	Volume   *int       `json:"volume,omitempty"`
	Local    bool       `json:"local,omitempty"`
}

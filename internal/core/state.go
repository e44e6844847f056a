package core

// RepeatMode is the player's repeat setting.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// QueueSource names the subsystem that decides what plays next.
type QueueSource string

const (
	QueueRemote QueueSource = "remote"
	QueueLocal  QueueSource = "local"
)

// Toast is the transient "now playing" notification.
type Toast struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	AlbumArt string `json:"album_art"`
}

// PlayerState is the UI-facing projection of the player.
type PlayerState struct {
	CurrentTrack *Track      `json:"current_track"`
	NextTrack    *Track      `json:"next_track"`
	Queue        []Track     `json:"queue"`
	QueueSource  QueueSource `json:"queue_source"`

	IsPlaying bool       `json:"is_playing"`
	Progress  float64    `json:"progress"`
	Volume    int        `json:"volume"`
	Shuffle   bool       `json:"shuffle"`
	Repeat    RepeatMode `json:"repeat"`

	ShowNextPreview bool   `json:"show_next_preview"`
	PeekLatched     bool   `json:"peek_latched"`
	IsTransitioning bool   `json:"is_transitioning"`
	Toast           *Toast `json:"toast,omitempty"`
	ToastKey        int    `json:"toast_key"`
}

// Clone returns a deep copy so callers never alias store memory.
func (s PlayerState) Clone() PlayerState {
	out := s
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		out.CurrentTrack = &t
	}
	if s.NextTrack != nil {
		t := *s.NextTrack
		out.NextTrack = &t
	}
	if s.Queue != nil {
		out.Queue = append([]Track(nil), s.Queue...)
	}
	if s.Toast != nil {
		t := *s.Toast
		out.Toast = &t
	}
	return out
}

// HasTrack returns true if there is a current track.
func (s PlayerState) HasTrack() bool {
	return s.CurrentTrack != nil
}

// PositionMs returns the playback position implied by Progress.
func (s PlayerState) PositionMs() int {
	if s.CurrentTrack == nil {
		return 0
	}
	return int(float64(s.CurrentTrack.Duration.Milliseconds()) * s.Progress / 100)
}

// Snapshot is one server-reported view of playback, as assembled by a
// poll tick. Nil pointer fields mean "not reported"; the previous value
// is kept for them.
type Snapshot struct {
	Current     *Track
	Next        *Track
	Queue       []Track
	IsPlaying   bool
	ProgressPct float64
	Shuffle     *bool
	Volume      *int
	Repeat      *RepeatMode
	Device      *Device

	// NowPlayingMissing marks a snapshot whose currently-playing fetch
	// failed. Current, IsPlaying and ProgressPct are then ignored and no
	// override is confirmed by it.
	NowPlayingMissing bool
}

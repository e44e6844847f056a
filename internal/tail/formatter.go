package tail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/muffle/internal/core"
)

var (
	trackStyle  = lipgloss.NewStyle().Bold(true)
	artistStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94e2d5"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
)

// Formatter formats events for output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	color         bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithColor styles track names and timestamps.
func WithColor(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.color = enabled
	}
}

// WithTemplate sets a custom format template. An invalid template leaves
// the default line format in place.
func WithTemplate(tmpl string) FormatterOption {
	return func(f *Formatter) {
		if tmpl == "" {
			return
		}
		if t, err := template.New("format").Parse(tmpl); err == nil {
			f.template = t
		}
	}
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{showEmoji: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a string.
func (f *Formatter) Format(e Event) string {
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

func (f *Formatter) formatLine(e Event) string {
	var parts []string
	if f.showTimestamp {
		parts = append(parts, f.style(dimStyle, e.Timestamp.Format("15:04:05")))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}
	parts = append(parts, f.eventDescription(e))
	return strings.Join(parts, " ")
}

func (f *Formatter) formatTemplate(e Event) string {
	var buf bytes.Buffer
	if err := f.template.Execute(&buf, dataOf(e)); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

// FormatJSON renders an event as one JSON object carrying the template
// fields.
func FormatJSON(e Event) string {
	b, err := json.Marshal(dataOf(e))
	if err != nil {
		return fmt.Sprintf(`{"type":%q}`, eventTypeName(e.Type))
	}
	return string(b)
}

func dataOf(e Event) templateData {
	data := templateData{
		Type:      eventTypeName(e.Type),
		Emoji:     eventEmoji(e.Type),
		Timestamp: e.Timestamp,
		Time:      e.Timestamp.Format("15:04:05"),
	}
	if e.Current == nil {
		return data
	}
	if t := e.Current.CurrentTrack; t != nil {
		data.Title = t.Name
		data.Artist = t.Artist
		data.Album = t.Album
		data.URI = t.URI
	}
	if n := e.Current.NextTrack; n != nil {
		data.Next = n.Name
	}
	data.Volume = e.Current.Volume
	data.Shuffle = e.Current.Shuffle
	data.Repeat = string(e.Current.Repeat)
	return data
}

type templateData struct {
	Type      string    `json:"type"`
	Emoji     string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Time      string    `json:"-"`
	Title     string    `json:"title,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Album     string    `json:"album,omitempty"`
	URI       string    `json:"uri,omitempty"`
	Next      string    `json:"next,omitempty"`
	Volume    int       `json:"volume"`
	Shuffle   bool      `json:"shuffle"`
	Repeat    string    `json:"repeat"`
}

func (f *Formatter) eventDescription(e Event) string {
	switch e.Type {
	case EventTrackChange:
		if e.Current != nil && e.Current.CurrentTrack != nil {
			return "Now playing: " + f.track(e.Current.CurrentTrack)
		}
		return "Track changed"

	case EventTrackComplete:
		if e.Previous != nil && e.Previous.CurrentTrack != nil {
			return "Finished: " + f.track(e.Previous.CurrentTrack)
		}
		return "Track completed"

	case EventTrackSkip:
		if e.Previous != nil && e.Previous.CurrentTrack != nil {
			return "Skipped: " + f.track(e.Previous.CurrentTrack)
		}
		return "Track skipped"

	case EventPause:
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventVolumeChange:
		if e.Current != nil {
			return fmt.Sprintf("Volume: %d%%", e.Current.Volume)
		}
		return "Volume changed"

	case EventShuffleChange:
		if e.Current != nil && e.Current.Shuffle {
			return "Shuffle on"
		}
		return "Shuffle off"

	case EventRepeatChange:
		if e.Current != nil {
			return "Repeat: " + string(e.Current.Repeat)
		}
		return "Repeat changed"

	case EventUpNext:
		if e.Current != nil && e.Current.NextTrack != nil {
			return "Up next: " + f.track(e.Current.NextTrack)
		}
		return "Up next"

	default:
		return "Unknown event"
	}
}

func (f *Formatter) track(t *core.Track) string {
	if t.Artist == "" {
		return f.style(trackStyle, t.Name)
	}
	return f.style(artistStyle, t.Artist) + " - " + f.style(trackStyle, t.Name)
}

func (f *Formatter) style(s lipgloss.Style, text string) string {
	if !f.color {
		return text
	}
	return s.Render(text)
}

func eventEmoji(t EventType) string {
	switch t {
	case EventTrackChange:
		return "🎵"
	case EventTrackComplete:
		return "✅"
	case EventTrackSkip:
		return "⏭️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventVolumeChange:
		return "🔊"
	case EventShuffleChange:
		return "🔀"
	case EventRepeatChange:
		return "🔁"
	case EventUpNext:
		return "🔜"
	default:
		return "❓"
	}
}

func eventTypeName(t EventType) string {
	switch t {
	case EventTrackChange:
		return "track_change"
	case EventTrackComplete:
		return "track_complete"
	case EventTrackSkip:
		return "track_skip"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventVolumeChange:
		return "volume_change"
	case EventShuffleChange:
		return "shuffle_change"
	case EventRepeatChange:
		return "repeat_change"
	case EventUpNext:
		return "up_next"
	default:
		return "unknown"
	}
}

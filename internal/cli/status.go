package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/app"
	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/wizard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current playback status",
	Long:  `Shows the current track, progress, device and player settings.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var (
	statusTitleStyle  = lipgloss.NewStyle().Bold(true)
	statusSubtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	statusBarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		st := a.Store.Snapshot()

		var device *core.Device
		if devices, err := a.Player.GetDevices(cmd.Context()); err == nil {
			if d, ok := lo.Find(devices, func(d core.Device) bool { return d.IsActive }); ok {
				device = &d
			}
		}

		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(statusJSON(st, device))
		}
		fmt.Print(renderStatus(st, device, wizard.IsTerminal()))
		return nil
	})
}

func statusJSON(st core.PlayerState, device *core.Device) map[string]interface{} {
	out := map[string]interface{}{
		"is_playing":   st.IsPlaying,
		"volume":       st.Volume,
		"shuffle":      st.Shuffle,
		"repeat":       st.Repeat,
		"queue_source": st.QueueSource,
	}
	if st.CurrentTrack != nil {
		out["track"] = trackJSON(st.CurrentTrack)
		out["progress_percent"] = st.Progress
		out["position_ms"] = st.PositionMs()
	}
	if st.NextTrack != nil {
		out["next"] = trackJSON(st.NextTrack)
	}
	if device != nil {
		out["device"] = device
	}
	return out
}

// renderStatus formats the player state for a terminal. Styling is only
// applied when color is true.
func renderStatus(st core.PlayerState, device *core.Device, color bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	if st.CurrentTrack == nil {
		return "No active playback\n"
	}

	var b strings.Builder
	t := st.CurrentTrack
	icon := lo.Ternary(st.IsPlaying, "▶", "⏸")

	fmt.Fprintf(&b, "%s %s\n", icon, style(statusTitleStyle, t.Name))
	fmt.Fprintf(&b, "  %s - %s\n", t.Artist, t.Album)
	fmt.Fprintf(&b, "  %s %s / %s\n",
		style(statusBarStyle, formatProgressBar(st.Progress, 30)),
		formatDuration(msDuration(st.PositionMs())),
		formatDuration(t.Duration))

	settings := []string{
		fmt.Sprintf("🔊 %d%%", st.Volume),
		"shuffle " + lo.Ternary(st.Shuffle, "on", "off"),
		"repeat " + string(lo.Ternary(st.Repeat == "", core.RepeatOff, st.Repeat)),
	}
	if device != nil {
		settings = append([]string{"📱 " + device.Name}, settings...)
	}
	fmt.Fprintf(&b, "  %s\n", style(statusSubtleStyle, strings.Join(settings, " · ")))

	if st.NextTrack != nil {
		fmt.Fprintf(&b, "  %s\n", style(statusSubtleStyle,
			fmt.Sprintf("Up next: %s - %s", st.NextTrack.Artist, st.NextTrack.Name)))
	}
	return b.String()
}

func trackJSON(t *core.Track) map[string]interface{} {
	return map[string]interface{}{
		"id":       t.ID,
		"uri":      t.URI,
		"title":    t.Name,
		"artist":   t.Artist,
		"album":    t.Album,
		"duration": t.Duration.String(),
	}
}

func formatProgressBar(percent float64, width int) string {
	filled := lo.Clamp(int(percent/100*float64(width)), 0, width)
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

func formatDuration(d time.Duration) string {
	return FormatDuration(int(d.Round(time.Second) / time.Second))
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

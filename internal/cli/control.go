package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/app"
	"github.com/tessro/muffle/internal/core"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Long:  `Pause the current playback.`,
	Args:  cobra.NoArgs,
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume playback",
	Long:  `Resume paused playback, waking the last used device if none is active.`,
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track",
	Long:  `Skip to the next track in the queue.`,
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track",
	Long:  `Go back to the previous track.`,
	Args:  cobra.NoArgs,
	RunE:  runPrev,
}

var seekCmd = &cobra.Command{
	Use:   "seek <percent>",
	Short: "Seek within the current track",
	Long: `Seek to a position in the current track, given as a percentage.

Examples:
  muffle seek 0     # Restart the track
  muffle seek 50    # Jump to the middle`,
	Args: cobra.ExactArgs(1),
	RunE: runSeek,
}

var shuffleCmd = &cobra.Command{
	Use:       "shuffle <on|off>",
	Short:     "Turn shuffle on or off",
	Long:      `Turn shuffle on or off. The choice is remembered for the next album or playlist.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runShuffle,
}

var repeatCmd = &cobra.Command{
	Use:       "repeat <off|all|one>",
	Short:     "Set the repeat mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"off", "all", "one"},
	RunE:      runRepeat,
}

var (
	volumeUp   bool
	volumeDown bool
)

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Set or adjust volume",
	Long: `Set the playback volume (0-100) or adjust it up/down.

Examples:
  muffle volume 50      # Set volume to 50%
  muffle volume --up    # Increase volume by 10%
  muffle volume --down  # Decrease volume by 10%`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVolume,
}

func init() {
	volumeCmd.Flags().BoolVar(&volumeUp, "up", false, "Increase volume by 10%")
	volumeCmd.Flags().BoolVar(&volumeDown, "down", false, "Decrease volume by 10%")

	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(shuffleCmd)
	rootCmd.AddCommand(repeatCmd)
	rootCmd.AddCommand(volumeCmd)
}

func runPause(cmd *cobra.Command, args []string) error {
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		if err := a.Player.Pause(cmd.Context()); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
		printStatus("paused", "⏸ Paused")
		return nil
	})
}

func runResume(cmd *cobra.Command, args []string) error {
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		if err := a.Player.Play(cmd.Context()); err != nil {
			return fmt.Errorf("failed to resume: %w", err)
		}
		printStatus("playing", "▶ Resumed")
		return nil
	})
}

func runNext(cmd *cobra.Command, args []string) error {
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		if err := a.Player.Next(cmd.Context()); err != nil {
			return fmt.Errorf("failed to skip: %w", err)
		}
		printTrackStatus("skipped", "⏭", a.Store.Snapshot().CurrentTrack)
		return nil
	})
}

func runPrev(cmd *cobra.Command, args []string) error {
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		if err := a.Player.Previous(cmd.Context()); err != nil {
			return fmt.Errorf("failed to go back: %w", err)
		}
		printTrackStatus("previous", "⏮", a.Store.Snapshot().CurrentTrack)
		return nil
	})
}

func runSeek(cmd *cobra.Command, args []string) error {
	pct, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "%"), 64)
	if err != nil {
		return fmt.Errorf("invalid position: %s", args[0])
	}
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		if !a.Store.Snapshot().HasTrack() {
			return fmt.Errorf("nothing is playing")
		}
		if err := a.Player.SeekToPercent(cmd.Context(), pct); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
		st := a.Store.Snapshot()
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"status":      "seeked",
				"progress":    st.Progress,
				"position_ms": st.PositionMs(),
			})
		} else {
			fmt.Printf("⏩ %s / %s\n",
				formatDuration(msDuration(st.PositionMs())),
				formatDuration(st.CurrentTrack.Duration))
		}
		return nil
	})
}

func runShuffle(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		if err := a.Player.SetShuffle(cmd.Context(), enabled); err != nil {
			return fmt.Errorf("failed to set shuffle: %w", err)
		}
		printStatus("shuffle_"+args[0], "🔀 Shuffle "+args[0])
		return nil
	})
}

func runRepeat(cmd *cobra.Command, args []string) error {
	mode, err := parseRepeat(args[0])
	if err != nil {
		return err
	}
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		if err := a.Player.SetRepeat(cmd.Context(), mode); err != nil {
			return fmt.Errorf("failed to set repeat: %w", err)
		}
		printStatus("repeat_"+string(mode), "🔁 Repeat "+string(mode))
		return nil
	})
}

func runVolume(cmd *cobra.Command, args []string) error {
	var level *int
	if len(args) > 0 {
		val, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid volume level: %s", args[0])
		}
		if val < 0 || val > 100 {
			return fmt.Errorf("volume must be between 0 and 100")
		}
		level = &val
	}

	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		current := a.Store.Snapshot().Volume
		target, change := volumeTarget(current, level, volumeUp, volumeDown)
		if !change {
			if JSONOutput() {
				_ = json.NewEncoder(os.Stdout).Encode(map[string]int{"volume": current})
			} else {
				fmt.Printf("🔊 Volume: %d%%\n", current)
			}
			return nil
		}

		if err := a.Player.SetVolumePercent(cmd.Context(), float64(target)); err != nil {
			return fmt.Errorf("failed to set volume: %w", err)
		}
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]int{
				"volume":   target,
				"previous": current,
			})
		} else {
			fmt.Printf("🔊 Volume: %d%% (was %d%%)\n", target, current)
		}
		return nil
	})
}

// volumeTarget resolves the requested volume. change is false when the
// command only asks for the current level.
func volumeTarget(current int, level *int, up, down bool) (target int, change bool) {
	switch {
	case up:
		return lo.Clamp(current+10, 0, 100), true
	case down:
		return lo.Clamp(current-10, 0, 100), true
	case level != nil:
		return *level, true
	}
	return current, false
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func parseRepeat(s string) (core.RepeatMode, error) {
	switch strings.ToLower(s) {
	case "off":
		return core.RepeatOff, nil
	case "all", "context":
		return core.RepeatAll, nil
	case "one", "track":
		return core.RepeatOne, nil
	}
	return "", fmt.Errorf("repeat mode must be off, all or one, got %q", s)
}

func printStatus(status, text string) {
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": status})
		return
	}
	fmt.Println(text)
}

func printTrackStatus(status, icon string, t *core.Track) {
	if JSONOutput() {
		out := map[string]interface{}{"status": status}
		if t != nil {
			out["track"] = trackJSON(t)
		}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return
	}
	if t == nil {
		fmt.Println(icon)
		return
	}
	fmt.Printf("%s %s - %s\n", icon, t.Artist, t.Name)
}

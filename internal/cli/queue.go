package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/app"
	"github.com/tessro/muffle/internal/core"
	"github.com/tessro/muffle/internal/spotify/client"
	"github.com/tessro/muffle/internal/spotify/player"
)

var (
	queueLimit  int
	queueAddURI string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage playback queue",
	Long:  `View and add to the playback queue.`,
	Args:  cobra.NoArgs,
	RunE:  runQueueShow,
}

var queueShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show upcoming tracks",
	Args:  cobra.NoArgs,
	RunE:  runQueueShow,
}

var queueAddCmd = &cobra.Command{
	Use:   "add [query]",
	Short: "Add a track to the queue",
	Long: `Search for a track and add it to the queue.

Examples:
  muffle queue add "bohemian rhapsody"
  muffle queue add --uri spotify:track:xxx`,
	RunE: runQueueAdd,
}

func init() {
	queueCmd.PersistentFlags().IntVarP(&queueLimit, "limit", "l", 20, "Maximum number of tracks to show")
	queueAddCmd.Flags().StringVar(&queueAddURI, "uri", "", "Add specific Spotify URI to queue")

	queueCmd.AddCommand(queueShowCmd)
	queueCmd.AddCommand(queueAddCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueShow(cmd *cobra.Command, args []string) error {
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		st := a.Store.Snapshot()
		tracks := st.Queue
		if queueLimit > 0 && len(tracks) > queueLimit {
			tracks = tracks[:queueLimit]
		}

		if JSONOutput() {
			out := map[string]interface{}{
				"source": st.QueueSource,
				"queue":  tracks,
			}
			if st.CurrentTrack != nil {
				out["current"] = trackJSON(st.CurrentTrack)
			}
			return json.NewEncoder(os.Stdout).Encode(out)
		}

		if st.CurrentTrack != nil {
			fmt.Printf("Now playing: %s - %s\n\n", st.CurrentTrack.Artist, st.CurrentTrack.Name)
		}
		if len(tracks) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}

		table := NewTable("#", "TITLE", "ARTIST", "LENGTH")
		for i, t := range tracks {
			table.Row(strconv.Itoa(i+1), TruncateString(t.Name, 40), TruncateString(t.Artist, 30),
				FormatDuration(int(t.Duration.Seconds())))
		}
		table.Flush()
		return nil
	})
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")
	if queueAddURI == "" && query == "" {
		return fmt.Errorf("give a search query or --uri")
	}

	return withSyncedApp(ctx, func(a *app.App) error {
		track, err := queueTarget(ctx, a.Client, queueAddURI, query)
		if err != nil {
			return err
		}
		if err := a.Player.AddToQueue(ctx, track); err != nil {
			return fmt.Errorf("failed to add to queue: %w", err)
		}

		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"status": "queued",
				"track":  trackJSON(&track),
			})
		} else if track.Name != "" {
			fmt.Printf("➕ Queued %s - %s\n", track.Artist, track.Name)
		} else {
			fmt.Printf("➕ Queued %s\n", track.URI)
		}
		return nil
	})
}

// queueTarget turns a URI or a search query into a track.
func queueTarget(ctx context.Context, c catalog, uri, query string) (core.Track, error) {
	if uri != "" {
		if uriKind(uri) != "track" {
			return core.Track{}, fmt.Errorf("only tracks can be queued, got %s", uri)
		}
		return core.Track{ID: uri[strings.LastIndex(uri, ":")+1:], URI: uri}, nil
	}

	resp, err := c.Search(ctx, client.SearchOptions{
		Query: query,
		Types: []client.SearchType{client.SearchTypeTrack},
		Limit: 1,
	})
	if err != nil {
		return core.Track{}, fmt.Errorf("search failed: %w", err)
	}
	if resp.Tracks == nil || len(resp.Tracks.Items) == 0 {
		return core.Track{}, fmt.Errorf("no tracks found for '%s'", query)
	}
	return *player.ConvertTrack(&resp.Tracks.Items[0]), nil
}

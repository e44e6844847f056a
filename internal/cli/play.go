package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/app"
	"github.com/tessro/muffle/internal/spotify/client"
	"github.com/tessro/muffle/internal/wizard"
)

var (
	playURIs        []string
	playContext     string
	playPosition    int
	playAlbum       bool
	playPlaylist    bool
	playArtist      bool
	playInteractive bool
)

var playCmd = &cobra.Command{
	Use:   "play [query]",
	Short: "Start or resume playback",
	Long: `Start playback of a track, album, playlist, or artist.
Without arguments, resumes current playback.

Examples:
  muffle play                               # Resume playback
  muffle play "bohemian rhapsody"           # Search and play a track
  muffle play --album "abbey road"          # Search and play an album
  muffle play --uri spotify:track:xxx       # Play specific URI
  muffle play --context spotify:playlist:x --position 4
  muffle play -i                            # Interactive search`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringSliceVar(&playURIs, "uri", nil, "Play specific Spotify URIs")
	playCmd.Flags().StringVar(&playContext, "context", "", "Play an album, playlist or artist URI")
	playCmd.Flags().IntVar(&playPosition, "position", -1, "Start the context at this track position")
	playCmd.Flags().BoolVar(&playAlbum, "album", false, "Search for albums")
	playCmd.Flags().BoolVar(&playPlaylist, "playlist", false, "Search for playlists")
	playCmd.Flags().BoolVar(&playArtist, "artist", false, "Search for artists")
	playCmd.Flags().BoolVarP(&playInteractive, "interactive", "i", false, "Pick from search results interactively")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	return withSyncedApp(ctx, func(a *app.App) error {
		switch {
		case playContext != "":
			return playContextURI(ctx, a, playContext, playPosition)

		case len(playURIs) == 1 && isContextURI(playURIs[0]):
			return playContextURI(ctx, a, playURIs[0], -1)

		case len(playURIs) == 1:
			if err := a.Player.PlayTrackURI(ctx, playURIs[0]); err != nil {
				return fmt.Errorf("failed to play URI: %w", err)
			}
			outputPlayResult("track", "", "", playURIs[0])
			return nil

		case len(playURIs) > 1:
			if err := a.Player.PlayURIs(ctx, playURIs); err != nil {
				return fmt.Errorf("failed to play URIs: %w", err)
			}
			outputPlayResult("tracks", fmt.Sprintf("%d tracks", len(playURIs)), "", playURIs[0])
			return nil

		case playInteractive:
			return pickAndPlay(ctx, a, query)

		case query == "":
			if err := a.Player.Play(ctx); err != nil {
				return fmt.Errorf("failed to resume playback: %w", err)
			}
			printStatus("playing", "▶ Resumed playback")
			return nil
		}

		return searchAndPlay(ctx, a, query)
	})
}

func playContextURI(ctx context.Context, a *app.App, uri string, position int) error {
	var err error
	if position >= 0 {
		err = a.Player.PlayPlaylistTrack(ctx, uri, position)
	} else {
		err = a.Player.PlayContextURI(ctx, uri)
	}
	if err != nil {
		return fmt.Errorf("failed to play %s: %w", uri, err)
	}
	outputPlayResult(uriKind(uri), "", "", uri)
	return nil
}

func searchAndPlay(ctx context.Context, a *app.App, query string) error {
	results, err := searchCatalog(ctx, a.Client, query, requestedSearchType(), 1)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no results found for '%s'", query)
	}
	return playResult(ctx, a, results[0])
}

func pickAndPlay(ctx context.Context, a *app.App, query string) error {
	if !wizard.IsTerminal() {
		return fmt.Errorf("interactive search needs a terminal")
	}
	search := func(q string, t wizard.SearchType) ([]wizard.SearchResult, error) {
		return searchCatalog(ctx, a.Client, q, t, 10)
	}
	picked, err := wizard.RunSearch(search, wizard.WithQuery(query), wizard.WithSearchType(requestedSearchType()))
	if err != nil {
		return err
	}
	if picked == nil {
		fmt.Println("Cancelled.")
		return nil
	}
	return playResult(ctx, a, *picked)
}

func playResult(ctx context.Context, a *app.App, r wizard.SearchResult) error {
	var err error
	if r.Type == wizard.SearchTracks {
		err = a.Player.PlayTrackURI(ctx, r.URI)
	} else {
		err = a.Player.PlayContextURI(ctx, r.URI)
	}
	if err != nil {
		return fmt.Errorf("failed to play %s: %w", r.Type, err)
	}
	outputPlayResult(r.Type.String(), r.Title, r.Subtitle, r.URI)
	return nil
}

func requestedSearchType() wizard.SearchType {
	switch {
	case playAlbum:
		return wizard.SearchAlbums
	case playPlaylist:
		return wizard.SearchPlaylists
	case playArtist:
		return wizard.SearchArtists
	}
	return wizard.SearchTracks
}

var searchTypes = map[wizard.SearchType][]client.SearchType{
	wizard.SearchAll: {
		client.SearchTypeTrack, client.SearchTypeAlbum,
		client.SearchTypeArtist, client.SearchTypePlaylist,
	},
	wizard.SearchTracks:    {client.SearchTypeTrack},
	wizard.SearchAlbums:    {client.SearchTypeAlbum},
	wizard.SearchArtists:   {client.SearchTypeArtist},
	wizard.SearchPlaylists: {client.SearchTypePlaylist},
}

type catalog interface {
	Search(ctx context.Context, opts client.SearchOptions) (*client.SearchResponse, error)
}

// searchCatalog runs a Spotify search and flattens the pages into
// picker rows, tracks first.
func searchCatalog(ctx context.Context, c catalog, query string, t wizard.SearchType, limit int) ([]wizard.SearchResult, error) {
	resp, err := c.Search(ctx, client.SearchOptions{
		Query: query,
		Types: searchTypes[t],
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	var out []wizard.SearchResult
	if resp.Tracks != nil {
		out = append(out, lo.Map(resp.Tracks.Items, func(tr client.Track, _ int) wizard.SearchResult {
			return wizard.SearchResult{
				ID: tr.ID, URI: tr.URI, Title: tr.Name,
				Subtitle: artistNames(tr.Artists), Type: wizard.SearchTracks,
			}
		})...)
	}
	if resp.Albums != nil {
		out = append(out, lo.Map(resp.Albums.Items, func(al client.Album, _ int) wizard.SearchResult {
			return wizard.SearchResult{
				ID: al.ID, URI: al.URI, Title: al.Name,
				Subtitle: artistNames(al.Artists), Type: wizard.SearchAlbums,
			}
		})...)
	}
	if resp.Artists != nil {
		out = append(out, lo.Map(resp.Artists.Items, func(ar client.Artist, _ int) wizard.SearchResult {
			return wizard.SearchResult{ID: ar.ID, URI: ar.URI, Title: ar.Name, Type: wizard.SearchArtists}
		})...)
	}
	if resp.Playlists != nil {
		// Spotify returns null entries for playlists it cannot show.
		playlists := lo.Filter(resp.Playlists.Items, func(p client.Playlist, _ int) bool { return p.URI != "" })
		out = append(out, lo.Map(playlists, func(p client.Playlist, _ int) wizard.SearchResult {
			return wizard.SearchResult{
				ID: p.ID, URI: p.URI, Title: p.Name,
				Subtitle: p.Owner.DisplayName, Type: wizard.SearchPlaylists,
			}
		})...)
	}
	return out, nil
}

func artistNames(artists []client.Artist) string {
	return strings.Join(lo.Map(artists, func(a client.Artist, _ int) string { return a.Name }), ", ")
}

func isContextURI(uri string) bool {
	return uriKind(uri) != "track"
}

// uriKind returns the type segment of a spotify:<type>:<id> URI.
func uriKind(uri string) string {
	parts := strings.Split(uri, ":")
	if len(parts) < 3 {
		return "track"
	}
	return parts[len(parts)-2]
}

func outputPlayResult(itemType, name, artist, uri string) {
	if JSONOutput() {
		output := map[string]interface{}{
			"status": "playing",
			"type":   itemType,
			"uri":    uri,
		}
		if name != "" {
			output["name"] = name
		}
		if artist != "" {
			output["artist"] = artist
		}
		_ = json.NewEncoder(os.Stdout).Encode(output)
		return
	}

	switch {
	case name == "":
		fmt.Printf("▶ Playing %s\n", uri)
	case artist != "":
		fmt.Printf("▶ Playing %s: %s by %s\n", itemType, name, artist)
	default:
		fmt.Printf("▶ Playing %s: %s\n", itemType, name)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	merrors "github.com/tessro/muffle/internal/errors"
	"github.com/tessro/muffle/internal/tail"
	"github.com/tessro/muffle/internal/wizard"
)

var (
	watchNoEmoji   bool
	watchTimestamp bool
	watchFormat    string
	watchInterval  time.Duration
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"tail"},
	Short:   "Follow playback changes in real-time",
	Long: `Poll Spotify and print playback changes as they happen.

Events tracked:
  - Track changes, completions and skips
  - Pause/Resume
  - Volume, shuffle and repeat changes
  - Up next previews near the end of a track

The --format flag takes a Go template with the fields .Type .Emoji .Time
.Title .Artist .Album .URI .Next .Volume .Shuffle .Repeat.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoEmoji, "no-emoji", false, "disable emoji output")
	watchCmd.Flags().BoolVarP(&watchTimestamp, "timestamp", "t", false, "show timestamps")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "", "custom format template")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "poll interval (default from config)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchInterval > 0 {
		cfg.Poll.IntervalMs = int(watchInterval / time.Millisecond)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Guardian.Session() == nil {
		return merrors.WithSuggestion(merrors.ErrNotAuthenticated, "Run 'muffle auth login' first")
	}

	format := cfg.Tail.Format
	if watchFormat != "" {
		format = watchFormat
	}
	formatter := tail.NewFormatter(
		tail.WithEmoji(cfg.Tail.Emoji && !watchNoEmoji),
		tail.WithTimestamp(cfg.Tail.Timestamp || watchTimestamp),
		tail.WithColor(wizard.IsTerminal() && !JSONOutput()),
		tail.WithTemplate(format),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := tail.NewWatcher(a.Store, tail.WithWatcherLogger(a.Logger.Named("watch")))
	errCh := make(chan error, 1)
	go func() {
		errCh <- watcher.Run(ctx)
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}

	for event := range watcher.Events() {
		if JSONOutput() {
			fmt.Println(tail.FormatJSON(event))
			continue
		}
		fmt.Println(formatter.Format(event))
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/app"
	"github.com/tessro/muffle/internal/config"
	merrors "github.com/tessro/muffle/internal/errors"
	"github.com/tessro/muffle/internal/logging"
)

var (
	cfgFile string
	jsonOut bool
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "muffle",
	Short: "Control Spotify playback from the command line",
	Long: `Muffle drives Spotify Connect playback and keeps a local view of the
player that reacts instantly to your commands.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.mufflerc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, merrors.Format(err))
		os.Exit(1)
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}

// openApp builds the component graph for one command. The caller must
// Close it.
func openApp() (*app.App, error) {
	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// withSyncedApp opens the app, pulls the server state once and runs fn.
func withSyncedApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Guardian.Session() == nil {
		return merrors.WithSuggestion(merrors.ErrNotAuthenticated, "Run 'muffle auth login' first")
	}
	a.Sync(ctx)
	if err := fn(a); err != nil {
		a.Logger.Debug("command failed", zap.Error(err))
		return err
	}
	return nil
}

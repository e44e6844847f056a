package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/app"
	merrors "github.com/tessro/muffle/internal/errors"
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Inspect and control the local playback engine",
	Long: `The local engine is a Spotify Connect receiver (librespot by default)
that lets this computer play audio. Enable it with engine.enabled in the config.`,
}

var engineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the engine is installed, running and visible",
	Args:  cobra.NoArgs,
	RunE:  runEngineStatus,
}

var engineActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Start the engine and move playback to it",
	Long: `Signs the engine in, waits for its device to appear and transfers
playback to it. If muffle had to start the engine, it keeps running until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runEngineActivate,
}

func init() {
	engineCmd.AddCommand(engineStatusCmd)
	engineCmd.AddCommand(engineActivateCmd)
	rootCmd.AddCommand(engineCmd)
}

func runEngineStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.EngineStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to inspect engine: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	if !report.Enabled {
		fmt.Println("Local engine disabled (set engine.enabled = true to use it)")
		return nil
	}
	table := NewTable()
	table.Row("Device name", report.Name)
	table.Row("Binary", foundLabel(report.Binary, cfg.Engine.Binary))
	table.Row("Process", StatusIcon(report.Running)+" "+runningLabel(report.Running))
	if report.DeviceID != "" {
		table.Row("Device", StatusIcon(true)+" visible ("+TruncateString(report.DeviceID, 12)+")")
	} else {
		table.Row("Device", StatusIcon(false)+" not visible")
	}
	table.Flush()
	return nil
}

func runEngineActivate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withSyncedApp(ctx, func(a *app.App) error {
		if !a.Engine.Enabled() {
			return merrors.WithSuggestion(merrors.ErrEngineUnavailable,
				"Run 'muffle config set engine.enabled true'")
		}
		if err := a.StartEngine(ctx); err != nil {
			return err
		}

		id, err := a.Player.EnsureLocalEngineIsActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to activate engine: %w", err)
		}

		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
				"status":    "active",
				"device_id": id,
			})
		} else {
			fmt.Printf("Playback moved to %s\n", a.Engine.Name())
		}

		if a.OwnsEngine() {
			if !JSONOutput() {
				fmt.Println("Engine running. Press Ctrl+C to stop.")
			}
			<-ctx.Done()
		}
		return nil
	})
}

func foundLabel(found bool, binary string) string {
	if found {
		return binary
	}
	return binary + " (not found in PATH)"
}

func runningLabel(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

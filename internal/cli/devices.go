package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/app"
	"github.com/tessro/muffle/internal/core"
	merrors "github.com/tessro/muffle/internal/errors"
	"github.com/tessro/muffle/internal/wizard"
)

var transferPlay bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available playback devices",
	Long:  `Lists the Spotify Connect devices on your account, including the local engine.`,
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available playback devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var devicesTransferCmd = &cobra.Command{
	Use:   "transfer [name|id]",
	Short: "Move playback to another device",
	Long: `Move playback to another device. Without an argument, shows a picker.

Examples:
  muffle devices transfer Kitchen
  muffle devices transfer --play "MacBook Pro"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDevicesTransfer,
}

func init() {
	devicesTransferCmd.Flags().BoolVarP(&transferPlay, "play", "p", false, "start playing after the transfer")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesTransferCmd)
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	return withSyncedApp(cmd.Context(), func(a *app.App) error {
		devices, err := a.Player.GetDevices(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}

		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(devices)
		}
		if len(devices) == 0 {
			fmt.Println("No devices found")
			return nil
		}

		table := NewTable("", "NAME", "TYPE", "VOLUME", "ID")
		for _, d := range devices {
			volume := "-"
			if d.Volume != nil {
				volume = fmt.Sprintf("%d%%", *d.Volume)
			}
			name := d.Name
			if d.Local {
				name += " (local)"
			}
			table.Row(StatusIcon(d.IsActive), name, string(d.Type), volume, TruncateString(d.ID, 12))
		}
		table.Flush()
		return nil
	})
}

func runDevicesTransfer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withSyncedApp(ctx, func(a *app.App) error {
		target, err := chooseDevice(ctx, a, args)
		if err != nil {
			return err
		}
		if target == nil {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := a.Player.TransferToDevice(ctx, target.ID, transferPlay); err != nil {
			return fmt.Errorf("failed to transfer playback: %w", err)
		}

		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"status": "transferred",
				"device": target,
				"play":   transferPlay,
			})
		} else {
			fmt.Printf("Playback moved to %s\n", target.Name)
		}
		return nil
	})
}

// chooseDevice resolves the transfer target from args or, on a terminal,
// from the picker. A nil device means the user cancelled.
func chooseDevice(ctx context.Context, a *app.App, args []string) (*core.Device, error) {
	devices, err := a.Player.GetDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if len(args) == 1 {
		d, ok := wizard.MatchDevice(devices, args[0])
		if !ok {
			return nil, merrors.WithSuggestion(
				fmt.Errorf("%w: %q", merrors.ErrDeviceNotFound, args[0]),
				"Run 'muffle devices' to see available devices")
		}
		return &d, nil
	}

	if !wizard.IsTerminal() {
		return nil, fmt.Errorf("no device given and no terminal for the picker")
	}
	return wizard.RunDevicePicker(devices)
}

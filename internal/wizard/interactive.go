package wizard

import (
	"os"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/term"

	"github.com/tessro/muffle/internal/core"
)

// IsTerminal returns true if stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetActiveDevice returns the single active device if there is exactly one.
func GetActiveDevice(devices []core.Device) *core.Device {
	active := lo.Filter(devices, func(d core.Device, _ int) bool { return d.IsActive })
	if len(active) != 1 {
		return nil
	}
	return &active[0]
}

// MatchDevice finds a device by exact id, then case-insensitive name,
// then name substring.
func MatchDevice(devices []core.Device, nameOrID string) (core.Device, bool) {
	if d, ok := lo.Find(devices, func(d core.Device) bool { return d.ID == nameOrID }); ok {
		return d, true
	}
	if d, ok := lo.Find(devices, func(d core.Device) bool { return strings.EqualFold(d.Name, nameOrID) }); ok {
		return d, true
	}
	needle := strings.ToLower(nameOrID)
	return lo.Find(devices, func(d core.Device) bool {
		return strings.Contains(strings.ToLower(d.Name), needle)
	})
}

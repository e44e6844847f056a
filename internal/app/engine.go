package app

import (
	"context"

	"github.com/tessro/muffle/internal/engine"
)

// EngineReport describes the local engine for `muffle engine status`.
type EngineReport struct {
	Enabled  bool          `json:"enabled"`
	Name     string        `json:"name"`
	Status   engine.Status `json:"status"`
	Binary   bool          `json:"binary_found"`
	Running  bool          `json:"running"`
	DeviceID string        `json:"device_id,omitempty"`
}

// EngineStatus inspects the engine process and looks for its device
// without starting anything.
func (a *App) EngineStatus(ctx context.Context) (EngineReport, error) {
	r := EngineReport{
		Enabled: a.Engine.Enabled(),
		Name:    a.Engine.Name(),
		Status:  a.Engine.Status(),
	}
	if a.control != nil {
		st, err := a.control.Status(ctx)
		if err != nil {
			return r, err
		}
		r.Binary, r.Running = st.Available, st.Running
	}
	r.DeviceID = a.Engine.RefreshDeviceID(ctx)
	return r, nil
}

// OwnsEngine reports whether this process started the engine, in which
// case it stops when the App closes.
func (a *App) OwnsEngine() bool {
	return a.control != nil && a.control.Owned()
}

package engine

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/tessro/muffle/internal/config"
)

func TestProcessControlMissingBinary(t *testing.T) {
	p := NewProcessControl(config.EngineConfig{Binary: "muffle-engine-that-does-not-exist"}, nil)

	st, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Available {
		t.Error("Available = true for a missing binary")
	}
}

func TestProcessControlReadyMarker(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	p := NewProcessControl(config.EngineConfig{
		Binary:      "sh",
		Args:        []string{"-c", "echo 'Authenticated as \"tester\"'; sleep 5"},
		DeviceName:  "Muffle",
		ReadyMarker: "Authenticated as",
	}, nil)
	defer p.Stop()

	if err := p.Restart(context.Background()); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}

	select {
	case <-p.Ready():
	case <-time.After(3 * time.Second):
		t.Fatal("ready marker was not detected")
	}

	st, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Available || !st.Running || !st.Ready {
		t.Errorf("Status() = %+v, want available, running and ready", st)
	}
}

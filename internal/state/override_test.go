package state

import (
	"testing"
	"time"
)

func TestOverrideReconcile(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setup     func(o *Override[float64])
		server    float64
		trackID   string
		want      float64
		wantClear bool
	}{
		{
			name:      "unset passes server through",
			setup:     func(o *Override[float64]) {},
			server:    30,
			want:      30,
			wantClear: true,
		},
		{
			name:   "live override wins",
			setup:  func(o *Override[float64]) { o.Set(50, time.Second, now) },
			server: 30,
			want:   50,
		},
		{
			name:      "expired override yields",
			setup:     func(o *Override[float64]) { o.Set(50, time.Second, now.Add(-2*time.Second)) },
			server:    30,
			want:      30,
			wantClear: true,
		},
		{
			name:      "confirmation clears",
			setup:     func(o *Override[float64]) { o.Set(50, time.Second, now) },
			server:    50.8,
			want:      50.8,
			wantClear: true,
		},
		{
			name: "bound to another track",
			setup: func(o *Override[float64]) {
				o.Set(50, time.Second, now)
				o.TrackID = "a"
			},
			server:    10,
			trackID:   "b",
			want:      10,
			wantClear: true,
		},
		{
			name: "bound to the same track",
			setup: func(o *Override[float64]) {
				o.Set(50, time.Second, now)
				o.TrackID = "a"
			},
			server:  10,
			trackID: "a",
			want:    50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Override[float64]
			tt.setup(&o)
			got := o.Reconcile(tt.server, tt.trackID, now, Within(1.25))
			if got != tt.want {
				t.Errorf("Reconcile() = %v, want %v", got, tt.want)
			}
			if cleared := !o.Live(now); cleared != tt.wantClear {
				t.Errorf("cleared = %v, want %v", cleared, tt.wantClear)
			}
		})
	}
}

func TestOverrideSetUnbinds(t *testing.T) {
	now := time.Now()
	var o Override[bool]
	o.Set(true, time.Second, now)
	o.TrackID = "x"
	o.Set(false, time.Second, now)
	if o.TrackID != "" {
		t.Errorf("TrackID = %q after Set, want empty", o.TrackID)
	}
	if !o.Live(now) || o.Live(now.Add(time.Second)) {
		t.Error("Live() should hold for exactly the ttl")
	}
}

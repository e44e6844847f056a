package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "explicit suggestion", err: WithSuggestion(errors.New("boom"), "do the thing"), want: "do the thing"},
		{name: "session expired", err: fmt.Errorf("refresh: %w", ErrSessionExpired), want: "muffle auth login"},
		{name: "scope", err: ErrInsufficientScope, want: "new Spotify permissions"},
		{name: "no device", err: ErrNoActiveDevice, want: "muffle devices transfer"},
		{name: "engine starting", err: ErrEngineStarting, want: "still starting"},
		{name: "rate limited", err: fmt.Errorf("call: %w", ErrRateLimited), want: "Too many requests"},
		{name: "bad gateway text", err: errors.New("Spotify API error 502: Bad gateway"), want: "Spotify is having issues"},
		{name: "unknown", err: errors.New("something odd"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSuggestion(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("GetSuggestion() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("GetSuggestion() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	got := Format(ErrNotAuthenticated)
	if !strings.HasPrefix(got, "Error: not authenticated") {
		t.Errorf("Format() = %q", got)
	}
	if !strings.Contains(got, "Suggestion:") {
		t.Errorf("Format() = %q, want a suggestion", got)
	}
	if Format(nil) != "" {
		t.Error("Format(nil) should be empty")
	}
}

func TestPartialResult(t *testing.T) {
	var p PartialResult[int]
	if p.HasErrors() || p.Err() != nil {
		t.Fatal("empty result should have no errors")
	}

	p.AddError(nil)
	p.AddError(ErrTimeout)
	p.AddError(ErrNetworkError)

	if !p.HasErrors() {
		t.Fatal("HasErrors() = false, want true")
	}
	if !errors.Is(p.Err(), ErrTimeout) || !errors.Is(p.Err(), ErrNetworkError) {
		t.Errorf("Err() = %v, want both errors joined", p.Err())
	}
	if !strings.HasPrefix(p.ErrorSummary(), "2 errors occurred") {
		t.Errorf("ErrorSummary() = %q", p.ErrorSummary())
	}
}

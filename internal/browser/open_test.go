package browser

import (
	"runtime"
	"testing"
)

func TestCommand(t *testing.T) {
	want := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "rundll32",
	}
	name, ok := want[runtime.GOOS]
	if !ok {
		t.Skipf("Unsupported platform: %s", runtime.GOOS)
	}

	cmd, err := Command("https://accounts.spotify.com/authorize")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if got := cmd.Args[0]; got != name {
		t.Errorf("Args[0] = %q, want %q", got, name)
	}
	if got := cmd.Args[len(cmd.Args)-1]; got != "https://accounts.spotify.com/authorize" {
		t.Errorf("last arg = %q, want the URL", got)
	}
}

package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestNewPKCE(t *testing.T) {
	pkce := NewPKCE()

	if len(pkce.Verifier) < 43 || len(pkce.Verifier) > 128 {
		t.Errorf("Verifier length = %d, want 43..128", len(pkce.Verifier))
	}
	if pkce.State == "" {
		t.Error("State is empty")
	}

	sum := sha256.Sum256([]byte(pkce.Verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if got := pkce.Challenge(); got != want {
		t.Errorf("Challenge() = %q, want %q", got, want)
	}

	other := NewPKCE()
	if pkce.Verifier == other.Verifier {
		t.Error("two PKCE instances share a verifier")
	}
	if pkce.State == other.State {
		t.Error("two PKCE instances share a state")
	}
}

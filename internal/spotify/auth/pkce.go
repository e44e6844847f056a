package auth

import (
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// PKCE holds the per-login verifier and CSRF state.
type PKCE struct {
	Verifier string
	State    string
}

// NewPKCE generates a fresh verifier and state for one login attempt.
func NewPKCE() *PKCE {
	return &PKCE{
		Verifier: oauth2.GenerateVerifier(),
		State:    uuid.NewString(),
	}
}

// Challenge returns the S256 challenge derived from the verifier.
func (p *PKCE) Challenge() string {
	return oauth2.S256ChallengeFromVerifier(p.Verifier)
}

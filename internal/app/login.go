package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	merrors "github.com/tessro/muffle/internal/errors"
	"github.com/tessro/muffle/internal/spotify/auth"
	"github.com/tessro/muffle/internal/spotify/client"
)

// LoginTimeout bounds how long Login waits for the browser redirect.
const LoginTimeout = 5 * time.Minute

// LoginHooks lets the caller surface the authorization URL.
type LoginHooks struct {
	// Open is asked to show url to the user. An error means the URL
	// could not be opened and Notify gets it instead.
	Open   func(url string) error
	Notify func(msg string)
}

// Login runs the PKCE authorization code flow against a loopback
// callback server and installs the resulting session.
func (a *App) Login(ctx context.Context, hooks LoginHooks) (*client.User, error) {
	if a.Config.Spotify.ClientID == "" {
		return nil, merrors.WithSuggestion(merrors.ErrInvalidConfig,
			"set spotify.client_id in ~/.mufflerc or MUFFLE_SPOTIFY_CLIENT_ID")
	}
	notify := hooks.Notify
	if notify == nil {
		notify = func(string) {}
	}

	pkce := auth.NewPKCE()
	cs, err := auth.NewCallbackServer(a.OAuth.RedirectURI())
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	cs.Start()
	defer func() { _ = cs.Shutdown(context.Background()) }()

	authURL := a.OAuth.AuthCodeURL(pkce)
	if hooks.Open == nil || hooks.Open(authURL) != nil {
		notify("Open this URL in your browser:\n\n" + authURL + "\n")
	}
	notify("Waiting for authentication...")

	ctx, cancel := context.WithTimeout(ctx, LoginTimeout)
	defer cancel()

	result, err := cs.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication timed out: %w", err)
	}
	if err := result.Validate(pkce.State); err != nil {
		return nil, err
	}

	tok, err := a.OAuth.Exchange(ctx, result.Code, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	session := &auth.Session{
		AccessToken: tok.AccessToken,
		ExpiresAt:   time.Now().Add(tok.ExpiresIn),
	}
	if tok.RefreshToken != nil {
		session.RefreshToken = *tok.RefreshToken
	}
	if err := a.Guardian.SetSession(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	user, err := a.Client.GetCurrentUser(ctx)
	if err != nil {
		a.Logger.Debug("profile lookup after login failed", zap.Error(err))
		return nil, nil
	}
	return user, nil
}

// Logout forgets the session and stops background work tied to it.
func (a *App) Logout() {
	a.Guardian.Logout("logged out")
}

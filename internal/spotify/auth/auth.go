package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// SpotifyAuthURL is the Spotify authorization endpoint.
	SpotifyAuthURL = "https://accounts.spotify.com/authorize"

	// SpotifyTokenURL is the Spotify token endpoint.
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultRedirectURI is the default callback URI for the local server.
	DefaultRedirectURI = "http://127.0.0.1:8888/callback"
)

// DefaultScopes are the Spotify scopes muffle needs.
var DefaultScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"streaming",
}

var revokedRe = regexp.MustCompile(`(?i)revoked|invalid_grant|invalid_client`)

// TokenResult is the outcome of a code exchange or refresh. RefreshToken
// is nil when the token endpoint did not issue a new one.
type TokenResult struct {
	AccessToken  string
	ExpiresIn    time.Duration
	RefreshToken *string
}

// TokenError is a rejection from the token endpoint.
type TokenError struct {
	Status      int
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token error %d: %s - %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("token error %d: %s", e.Status, e.Code)
}

// IsRevoked reports whether the refresh token can never succeed again.
func (e *TokenError) IsRevoked() bool {
	return revokedRe.MatchString(e.Code + " " + e.Description)
}

// IsRevoked reports whether err is a revoked-grant token error.
func IsRevoked(err error) bool {
	var tokenErr *TokenError
	return errors.As(err, &tokenErr) && tokenErr.IsRevoked()
}

// OAuth talks to the Spotify accounts service for a public PKCE client.
type OAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// OAuthOption configures OAuth.
type OAuthOption func(*OAuth)

// WithEndpoints overrides the authorization and token URLs.
func WithEndpoints(authURL, tokenURL string) OAuthOption {
	return func(o *OAuth) {
		if authURL != "" {
			o.config.Endpoint.AuthURL = authURL
		}
		if tokenURL != "" {
			o.config.Endpoint.TokenURL = tokenURL
		}
	}
}

// WithTokenHTTPClient sets the HTTP client used for token requests.
func WithTokenHTTPClient(hc *http.Client) OAuthOption {
	return func(o *OAuth) {
		o.httpClient = hc
	}
}

// NewOAuth creates an OAuth helper for clientID.
func NewOAuth(clientID, redirectURI string, opts ...OAuthOption) *OAuth {
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	o := &OAuth{
		config: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURI,
			Scopes:      DefaultScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   SpotifyAuthURL,
				TokenURL:  SpotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ClientID returns the configured client id.
func (o *OAuth) ClientID() string {
	return o.config.ClientID
}

// RedirectURI returns the configured callback URI.
func (o *OAuth) RedirectURI() string {
	return o.config.RedirectURL
}

// AuthCodeURL builds the authorization URL with an S256 code challenge.
func (o *OAuth) AuthCodeURL(p *PKCE) string {
	return o.config.AuthCodeURL(p.State, oauth2.S256ChallengeOption(p.Verifier))
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code, verifier string) (*TokenResult, error) {
	tok, err := o.config.Exchange(o.context(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, translateError(err)
	}
	return toResult(tok, ""), nil
}

// Refresh trades a refresh token for a new access token.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	src := o.config.TokenSource(o.context(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, translateError(err)
	}
	return toResult(tok, refreshToken), nil
}

func (o *OAuth) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}

// toResult converts an oauth2 token. oauth2 copies the previous refresh
// token into the result when the response omits one, so an unchanged
// value is reported as absent.
func toResult(tok *oauth2.Token, previous string) *TokenResult {
	res := &TokenResult{AccessToken: tok.AccessToken}

	switch {
	case tok.ExpiresIn > 0:
		res.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		res.ExpiresIn = time.Until(tok.Expiry).Round(time.Second)
	default:
		res.ExpiresIn = time.Hour
	}

	if tok.RefreshToken != "" && tok.RefreshToken != previous {
		rt := tok.RefreshToken
		res.RefreshToken = &rt
	}
	return res
}

func translateError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return fmt.Errorf("token request failed: %w", err)
	}

	tokenErr := &TokenError{
		Code:        retrieveErr.ErrorCode,
		Description: retrieveErr.ErrorDescription,
	}
	if retrieveErr.Response != nil {
		tokenErr.Status = retrieveErr.Response.StatusCode
	}
	if tokenErr.Code == "" {
		tokenErr.Code = strings.TrimSpace(string(retrieveErr.Body))
	}
	return tokenErr
}

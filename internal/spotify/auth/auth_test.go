package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthCodeURL(t *testing.T) {
	o := NewOAuth("test_client_id", "http://127.0.0.1:8888/callback")
	pkce := &PKCE{Verifier: strings.Repeat("v", 43), State: "test_state"}

	u, err := url.Parse(o.AuthCodeURL(pkce))
	if err != nil {
		t.Fatalf("AuthCodeURL() produced invalid URL: %v", err)
	}
	if u.Scheme != "https" || u.Host != "accounts.spotify.com" || u.Path != "/authorize" {
		t.Errorf("base URL = %s://%s%s", u.Scheme, u.Host, u.Path)
	}

	q := u.Query()
	tests := []struct {
		param string
		want  string
	}{
		{"client_id", "test_client_id"},
		{"response_type", "code"},
		{"redirect_uri", "http://127.0.0.1:8888/callback"},
		{"code_challenge_method", "S256"},
		{"code_challenge", pkce.Challenge()},
		{"state", "test_state"},
		{"scope", strings.Join(DefaultScopes, " ")},
	}
	for _, tt := range tests {
		if got := q.Get(tt.param); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.param, got, tt.want)
		}
	}
}

func TestDefaultRedirectURI(t *testing.T) {
	o := NewOAuth("id", "")
	if o.RedirectURI() != DefaultRedirectURI {
		t.Errorf("RedirectURI() = %q, want %q", o.RedirectURI(), DefaultRedirectURI)
	}
}

func newTokenServer(t *testing.T, handler http.HandlerFunc) *OAuth {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOAuth("client", "http://127.0.0.1:8888/callback",
		WithEndpoints("", server.URL+"/api/token"))
}

func TestExchange(t *testing.T) {
	o := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		want := map[string]string{
			"grant_type":    "authorization_code",
			"code":          "the_code",
			"code_verifier": "the_verifier",
			"client_id":     "client",
			"redirect_uri":  "http://127.0.0.1:8888/callback",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("form %s = %q, want %q", k, got, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"refresh_token":"rt"}`))
	})

	res, err := o.Exchange(context.Background(), "the_code", "the_verifier")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if res.AccessToken != "at" {
		t.Errorf("AccessToken = %q", res.AccessToken)
	}
	if res.ExpiresIn != time.Hour {
		t.Errorf("ExpiresIn = %v, want 1h", res.ExpiresIn)
	}
	if res.RefreshToken == nil || *res.RefreshToken != "rt" {
		t.Errorf("RefreshToken = %v, want rt", res.RefreshToken)
	}
}

func TestRefreshOmittedRefreshToken(t *testing.T) {
	o := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "old_rt" {
			t.Errorf("refresh_token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new_at","token_type":"Bearer","expires_in":3600}`))
	})

	res, err := o.Refresh(context.Background(), "old_rt")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.AccessToken != "new_at" {
		t.Errorf("AccessToken = %q", res.AccessToken)
	}
	if res.RefreshToken != nil {
		t.Errorf("RefreshToken = %q, want nil when omitted", *res.RefreshToken)
	}
}

func TestRefreshRevoked(t *testing.T) {
	o := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token revoked"}`))
	})

	_, err := o.Refresh(context.Background(), "old_rt")
	if err == nil {
		t.Fatal("Refresh() error = nil, want TokenError")
	}
	if !IsRevoked(err) {
		t.Errorf("IsRevoked(%v) = false, want true", err)
	}
}

func TestTokenErrorIsRevoked(t *testing.T) {
	tests := []struct {
		err  TokenError
		want bool
	}{
		{TokenError{Code: "invalid_grant"}, true},
		{TokenError{Code: "invalid_client"}, true},
		{TokenError{Code: "invalid_request", Description: "Refresh token REVOKED"}, true},
		{TokenError{Code: "server_error", Status: 500}, false},
	}
	for _, tt := range tests {
		if got := tt.err.IsRevoked(); got != tt.want {
			t.Errorf("%+v IsRevoked() = %v, want %v", tt.err, got, tt.want)
		}
	}
}

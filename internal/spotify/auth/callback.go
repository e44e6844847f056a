package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"time"
)

// CallbackResult contains the result of the OAuth callback.
type CallbackResult struct {
	Code  string
	State string
	Error string
}

// Validate checks the callback against the state sent with the
// authorization request.
func (r CallbackResult) Validate(state string) error {
	if r.Error != "" {
		return fmt.Errorf("authentication failed: %s", r.Error)
	}
	if r.State != state {
		return errors.New("state mismatch: possible CSRF attack")
	}
	if r.Code == "" {
		return errors.New("callback carried no authorization code")
	}
	return nil
}

// CallbackServer receives the OAuth redirect on the loopback interface.
type CallbackServer struct {
	server   *http.Server
	listener net.Listener
	result   chan CallbackResult
}

// NewCallbackServer listens on the host and port of redirectURI and serves
// its path. Port 0 picks a free port.
func NewCallbackServer(redirectURI string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		port = "8888"
	}
	path := u.Path
	if path == "" {
		path = "/callback"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%s: %w", host, port, err)
	}

	cs := &CallbackServer{
		listener: listener,
		result:   make(chan CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, cs.handleCallback)

	cs.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return cs, nil
}

// Start begins serving HTTP requests in the background.
func (cs *CallbackServer) Start() {
	go func() {
		_ = cs.server.Serve(cs.listener)
	}()
}

// Wait blocks until a callback is received or ctx is done.
func (cs *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case result := <-cs.result:
		return result, nil
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

// Shutdown gracefully shuts down the server.
func (cs *CallbackServer) Shutdown(ctx context.Context) error {
	return cs.server.Shutdown(ctx)
}

// Port returns the port the server is listening on.
func (cs *CallbackServer) Port() int {
	return cs.listener.Addr().(*net.TCPAddr).Port
}

func (cs *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	result := CallbackResult{
		Code:  query.Get("code"),
		State: query.Get("state"),
		Error: query.Get("error"),
	}

	// Duplicate callbacks are dropped.
	select {
	case cs.result <- result:
	default:
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.Error != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, callbackPage, "Muffle could not sign in",
			"Spotify returned: "+html.EscapeString(result.Error)+". You can close this window.")
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, callbackPage, "Muffle is signed in",
		"You can close this window and return to the terminal.")
}

const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Muffle</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>`

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	merrors "github.com/tessro/muffle/internal/errors"
)

// BaseURL is the Spotify Web API base URL.
const BaseURL = "https://api.spotify.com/v1"

// TokenSource yields a bearer token for each call.
type TokenSource interface {
	EnsureFreshToken(ctx context.Context) (string, error)
}

// Client is a Spotify API client. Every call passes through the shared
// rate-limit Gate.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	gate       *Gate
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithGate shares a rate-limit gate between clients.
func WithGate(g *Gate) Option {
	return func(c *Client) {
		c.gate = g
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a new Spotify client.
func New(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    BaseURL,
		tokens:     tokens,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gate == nil {
		c.gate = NewGate()
	}
	return c
}

// Gate returns the client's rate-limit gate.
func (c *Client) Gate() *Gate {
	return c.gate
}

// Get performs a GET request to the Spotify API.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	_, err := c.request(ctx, http.MethodGet, path, nil, result)
	return err
}

// Post performs a POST request to the Spotify API.
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	_, err := c.request(ctx, http.MethodPost, path, body, result)
	return err
}

// Put performs a PUT request to the Spotify API.
func (c *Client) Put(ctx context.Context, path string, body interface{}, result interface{}) error {
	_, err := c.request(ctx, http.MethodPut, path, body, result)
	return err
}

// Delete performs a DELETE request to the Spotify API.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.request(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// request performs one authenticated call and returns the response status.
// Non-2xx responses become *APIError.
func (c *Client) request(ctx context.Context, method, path string, body interface{}, result interface{}) (int, error) {
	token, err := c.tokens.EnsureFreshToken(ctx)
	if err != nil {
		return 0, err
	}
	if token == "" {
		return 0, merrors.ErrNotAuthenticated
	}

	var jsonBody []byte
	if body != nil {
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path

	send := func() (*http.Response, error) {
		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	}

	resp, err := c.gate.Do(ctx, send)
	if err != nil {
		c.logger.Debug("spotify request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		if IsRateLimited(err) {
			return http.StatusTooManyRequests, err
		}
		return 0, fmt.Errorf("%w: %w", merrors.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("spotify request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 400 {
		c.logger.Debug("spotify error body", zap.ByteString("body", respBody))
		return resp.StatusCode, newAPIError(method, path, resp.StatusCode, respBody)
	}

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// BuildURL builds a URL with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// withDevice appends device_id to params when deviceID is set.
func withDevice(path, deviceID string, params map[string]string) string {
	if deviceID != "" {
		if params == nil {
			params = map[string]string{}
		}
		params["device_id"] = deviceID
	}
	return BuildURL(path, params)
}

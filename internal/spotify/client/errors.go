package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	merrors "github.com/tessro/muffle/internal/errors"
)

var insufficientScopeRe = regexp.MustCompile(`(?i)insufficient client scope`)

// APIError represents a non-2xx response from the Spotify API.
type APIError struct {
	Status     int
	StatusText string
	Body       string
	Method     string
	Path       string

	// Decoded from {"error": {"status", "message", "reason"}} when present.
	Message string
	Reason  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if msg == "" {
		msg = e.StatusText
	}
	return fmt.Sprintf("Spotify API error %d: %s", e.Status, msg)
}

// newAPIError builds an APIError from a response status and body.
func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:     status,
		StatusText: http.StatusText(status),
		Body:       string(body),
		Method:     method,
		Path:       stripQuery(path),
	}

	var payload struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
			Reason  string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error.Message
		apiErr.Reason = payload.Error.Reason
	}
	return apiErr
}

// IsNoActiveDevice reports whether the error means no playback device is
// active: either the NO_ACTIVE_DEVICE reason or a 404 on a player path.
func (e *APIError) IsNoActiveDevice() bool {
	if e.Reason == "NO_ACTIVE_DEVICE" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Message+" "+e.Body), "no active device") {
		return true
	}
	return e.Status == http.StatusNotFound && strings.HasPrefix(e.Path, "/me/player")
}

// IsInsufficientScope reports a 403 caused by a missing OAuth scope.
func (e *APIError) IsInsufficientScope() bool {
	return e.Status == http.StatusForbidden && insufficientScopeRe.MatchString(e.Message+" "+e.Body)
}

// RateLimitError is returned when a call is rate limited twice in a row.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	return fmt.Sprintf("Spotify API error 429: API rate limit exceeded (retry after %ds)", secs)
}

func (e *RateLimitError) Unwrap() error {
	return merrors.ErrRateLimited
}

// IsNoActiveDeviceError checks if an error is a "no active device" error.
func IsNoActiveDeviceError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNoActiveDevice()
}

// IsBadGateway checks for a 502 response.
func IsBadGateway(err error) bool {
	return hasStatus(err, http.StatusBadGateway)
}

// IsUnauthorized checks for a 401 response.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsInsufficientScopeError checks for a 403 insufficient-scope response.
func IsInsufficientScopeError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsInsufficientScope()
}

// IsRateLimited checks for a surfaced rate-limit error.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

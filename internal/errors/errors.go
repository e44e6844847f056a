package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrSessionExpired    = errors.New("spotify session expired")
	ErrInsufficientScope = errors.New("insufficient client scope")
	ErrNoActiveDevice    = errors.New("no active device")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrEngineStarting    = errors.New("local playback engine is starting")
	ErrEngineUnavailable = errors.New("local playback engine unavailable")
	ErrNetworkError      = errors.New("network error")
	ErrTimeout           = errors.New("request timeout")
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// MuffleError wraps an error with a user-friendly suggestion.
type MuffleError struct {
	Err        error
	Suggestion string
}

func (e *MuffleError) Error() string {
	return e.Err.Error()
}

func (e *MuffleError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &MuffleError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var muffleErr *MuffleError
	if errors.As(err, &muffleErr) && muffleErr.Suggestion != "" {
		return muffleErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	// Authentication errors
	if errors.Is(err, ErrInsufficientScope) || strings.Contains(errStr, "insufficient client scope") {
		return "Muffle needs new Spotify permissions. Run 'muffle auth login' again"
	}
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionExpired) ||
		strings.Contains(errStr, "not authenticated") || strings.Contains(errStr, "invalid access token") ||
		strings.Contains(errStr, "token expired") {
		return "Run 'muffle auth login' to authenticate with Spotify"
	}

	// Device errors
	if errors.Is(err, ErrNoActiveDevice) || strings.Contains(errStr, "no active device") {
		return "Open Spotify on a device, or run 'muffle devices transfer' to pick one"
	}
	if errors.Is(err, ErrDeviceNotFound) || strings.Contains(errStr, "device not found") {
		return "Run 'muffle devices' to see available devices"
	}

	// Local engine
	if errors.Is(err, ErrEngineStarting) {
		return "The local playback engine is still starting. Try again in a few seconds"
	}
	if errors.Is(err, ErrEngineUnavailable) {
		return "Install librespot or set engine.binary in your config"
	}

	// Rate limiting
	if errors.Is(err, ErrRateLimited) || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") {
		return "Too many requests. Wait a moment and try again"
	}

	// Network errors
	if errors.Is(err, ErrNetworkError) || errors.Is(err, ErrTimeout) ||
		strings.Contains(errStr, "network") || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "Check your internet connection and try again"
	}

	// Config errors
	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrInvalidConfig) || strings.Contains(errStr, "config") {
		return "Run 'muffle config init' to set up your configuration"
	}

	// Server errors
	if strings.Contains(errStr, "502") || strings.Contains(errStr, "500") || strings.Contains(errStr, "server error") {
		return "Spotify is having issues. Try again in a moment"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult represents a result that may have partial failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if there were any errors.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError adds an error to the partial result.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// Err joins all collected errors, or returns nil.
func (p *PartialResult[T]) Err() error {
	return errors.Join(p.Errors...)
}

// ErrorSummary returns a summary of all errors.
func (p *PartialResult[T]) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	if len(p.Errors) == 1 {
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(p.Errors)))
	for i, err := range p.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

package client

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultRetryAfter is used when a 429 response carries no usable
// Retry-After header.
const DefaultRetryAfter = 2500 * time.Millisecond

// Gate serializes outbound calls behind one shared cool-down window. A
// single Gate is shared by every client in the process.
type Gate struct {
	mu           sync.Mutex
	limitedUntil time.Time
	defaultWait  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithDefaultRetryAfter sets the window used when Retry-After is absent.
func WithDefaultRetryAfter(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.defaultWait = d
		}
	}
}

// WithClock replaces the gate's time source and sleep function.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) GateOption {
	return func(g *Gate) {
		g.now = now
		g.sleep = sleep
	}
}

// NewGate creates a gate with no active cool-down.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		defaultWait: DefaultRetryAfter,
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LimitedUntil returns the end of the current cool-down window.
func (g *Gate) LimitedUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limitedUntil
}

// Wait blocks until the cool-down window has elapsed.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	remaining := g.limitedUntil.Sub(g.now())
	g.mu.Unlock()

	if remaining <= 0 {
		return nil
	}
	return g.sleep(ctx, remaining)
}

// Note records a rate-limit response and advances the shared window to
// max(current, now+wait).
func (g *Gate) Note(wait time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	until := g.now().Add(wait)
	if until.After(g.limitedUntil) {
		g.limitedUntil = until
	}
}

// Do sends a request through the gate. A 429 response is waited out and
// retried exactly once; a second 429 becomes a *RateLimitError. send must
// build a fresh request on every call.
func (g *Gate) Do(ctx context.Context, send func() (*http.Response, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := g.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := send()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := g.parseRetryAfter(resp.Header.Get("Retry-After"))
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		g.Note(wait)
		if attempt >= 1 {
			return nil, &RateLimitError{RetryAfter: wait}
		}
	}
}

func (g *Gate) parseRetryAfter(raw string) time.Duration {
	if d, ok := ParseRetryAfter(raw); ok {
		return d
	}
	return g.defaultWait
}

// ParseRetryAfter parses a Retry-After header given in (possibly
// fractional) seconds. ok is false for missing, invalid or non-positive
// values.
func ParseRetryAfter(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond), true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

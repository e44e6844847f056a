package state

import "time"

// Override is a locally held, time-bounded belief about one piece of
// player state. While live it wins over server facts until the server
// confirms it, it expires, or its bound track stops playing.
type Override[T comparable] struct {
	Value     T
	ExpiresAt time.Time
	// TrackID binds the override to a track; empty means unbound.
	TrackID string

	set bool
}

// Set arms the override for ttl and unbinds it.
func (o *Override[T]) Set(v T, ttl time.Duration, now time.Time) {
	o.Value = v
	o.ExpiresAt = now.Add(ttl)
	o.TrackID = ""
	o.set = true
}

// Clear disarms the override.
func (o *Override[T]) Clear() {
	var zero T
	o.Value = zero
	o.ExpiresAt = time.Time{}
	o.TrackID = ""
	o.set = false
}

// Live reports whether the override is armed and unexpired.
func (o *Override[T]) Live(now time.Time) bool {
	return o.set && now.Before(o.ExpiresAt)
}

// Reconcile merges a server value with the override. The override is
// cleared and the server value returned when the override has expired,
// is bound to a track other than trackID, or confirmed reports that the
// server caught up.
func (o *Override[T]) Reconcile(server T, trackID string, now time.Time, confirmed func(want, got T) bool) T {
	if !o.set {
		return server
	}
	if !now.Before(o.ExpiresAt) ||
		(o.TrackID != "" && o.TrackID != trackID) ||
		confirmed(o.Value, server) {
		o.Clear()
		return server
	}
	return o.Value
}

// Equal is the confirmation predicate for exact-match overrides.
func Equal[T comparable](want, got T) bool {
	return want == got
}

// Within returns a confirmation predicate accepting values no further
// than tol from the override.
func Within(tol float64) func(want, got float64) bool {
	return func(want, got float64) bool {
		d := want - got
		if d < 0 {
			d = -d
		}
		return d <= tol
	}
}

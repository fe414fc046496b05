package limit

import "time"

// Window is a fixed quota of draws over a rolling period (per account+pool).
type Window struct {
	Count int
	Every time.Duration
}

// State is the persisted half of a Window.
type State struct {
	WindowStart int64 `json:"window_start" yaml:"window_start"` // unix millis, 0 = never used
	Used        int   `json:"count" yaml:"count"`
}

// rolled reports whether s has expired at now. A zero start counts as expired.
func (w Window) rolled(s State, now time.Time) bool {
	return s.WindowStart == 0 || now.UnixMilli()-s.WindowStart >= w.Every.Milliseconds()
}

// Allow reports whether requested more draws fit in the window.
func (w Window) Allow(s State, now time.Time, requested int) bool {
	if w.rolled(s, now) {
		return requested <= w.Count
	}
	return s.Used+requested <= w.Count
}

// Mark records requested draws. It must be given the same snapshot and
// instant that Allow saw so both agree on rollover.
func (w Window) Mark(s State, now time.Time, requested int) State {
	if w.rolled(s, now) {
		s = State{WindowStart: now.UnixMilli()}
	}
	s.Used += requested
	return s
}

// Remaining is the quota left at now.
func (w Window) Remaining(s State, now time.Time) int {
	if w.rolled(s, now) {
		return w.Count
	}
	if left := w.Count - s.Used; left > 0 {
		return left
	}
	return 0
}

// ResetAt is when the current window ends, zero if no window is open.
func (w Window) ResetAt(s State, now time.Time) time.Time {
	if w.rolled(s, now) {
		return time.Time{}
	}
	return time.UnixMilli(s.WindowStart).Add(w.Every)
}

// Active bounds the period in which a pool can be drawn. Nil ends are open.
type Active struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether now lies in [Start, End].
func (a *Active) Contains(now time.Time) bool {
	if a == nil {
		return true
	}
	if a.Start != nil && now.Before(*a.Start) {
		return false
	}
	if a.End != nil && now.After(*a.End) {
		return false
	}
	return true
}

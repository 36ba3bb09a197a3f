package controller

import "time"

// IdleTimer fires a reset action once after a quiet period with no
// interaction, then stays silent until the next interaction re-arms it.
type IdleTimer struct {
	quiet  time.Duration
	last   time.Time
	armed  bool
	onIdle func()
}

// NewIdleTimer creates an armed IdleTimer whose clock starts at now.
func NewIdleTimer(quiet time.Duration, now time.Time, onIdle func()) *IdleTimer {
	return &IdleTimer{
		quiet:  quiet,
		last:   now,
		armed:  true,
		onIdle: onIdle,
	}
}

// Notify records an interaction, restarting the countdown.
func (t *IdleTimer) Notify(now time.Time) {
	t.last = now
	t.armed = true
}

// Check fires the reset action if the quiet period has elapsed since the
// last interaction. Returns true if it fired.
func (t *IdleTimer) Check(now time.Time) bool {
	if !t.armed || now.Sub(t.last) < t.quiet {
		return false
	}
	t.armed = false
	if t.onIdle != nil {
		t.onIdle()
	}
	return true
}

// Armed reports whether the timer will fire after the next quiet period.
func (t *IdleTimer) Armed() bool {
	return t.armed
}

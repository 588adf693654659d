package scheduler

import "time"

// DefaultThrottleInterval matches the leading-edge throttle used for range
// prefetching.
const DefaultThrottleInterval = 200 * time.Millisecond

// Throttle is a leading-edge rate limiter: the first call in a window is
// allowed and every further call until the window closes is dropped.
type Throttle struct {
	interval time.Duration
	until    time.Time
	now      func() time.Time
	dropped  int
}

// NewThrottle creates a throttle with the given window. A non-positive
// interval selects DefaultThrottleInterval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultThrottleInterval
	}
	return &Throttle{interval: interval, now: time.Now}
}

// Allow reports whether the caller may proceed now.
func (t *Throttle) Allow() bool {
	now := t.now()
	if now.Before(t.until) {
		t.dropped++
		return false
	}
	t.until = now.Add(t.interval)
	return true
}

// Reset reopens the window immediately.
func (t *Throttle) Reset() {
	t.until = time.Time{}
}

// Dropped returns how many calls were rejected.
func (t *Throttle) Dropped() int {
	return t.dropped
}

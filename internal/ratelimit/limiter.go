// Package ratelimit throttles chat messages per connection with a sliding
// window of recent send timestamps, and HTTP requests per client address.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter keeps, per connection, the timestamps of the messages it allowed
// within the trailing window. Old entries are evicted lazily on each call.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	max     int
	window  time.Duration
	now     func() time.Time
}

// New creates a limiter allowing max messages per window for each connection.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string][]time.Time),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow records a send for connID if it fits in the window. When it does not,
// it returns false and how long until the oldest entry leaves the window.
func (l *Limiter) Allow(connID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	ts := l.windows[connID]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	ts = ts[i:]

	if len(ts) >= l.max {
		l.windows[connID] = ts
		return false, l.window - now.Sub(ts[0])
	}

	l.windows[connID] = append(ts, now)
	return true, 0
}

// Forget drops the window of a disconnected connection.
func (l *Limiter) Forget(connID string) {
	l.mu.Lock()
	delete(l.windows, connID)
	l.mu.Unlock()
}

// Len returns the number of tracked connections.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

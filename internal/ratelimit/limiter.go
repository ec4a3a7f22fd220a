// Package ratelimit guards the upstream model quota with rolling per-minute
// and per-day request windows.
package ratelimit

import (
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
)

// Denial reasons shown to callers.
const (
	ReasonDailyLimit  = "Daily request limit reached. Please try again tomorrow."
	ReasonMinuteLimit = "Rate limit reached. Please wait a minute before trying again."
)

// Decision is the outcome of a single acquisition attempt.
type Decision struct {
	Allowed bool
	Reason  string
}

// Stats is a read-only view of the current window.
type Stats struct {
	LastMinute int `json:"last_minute"`
	LastDay    int `json:"last_day"`
	PerMinute  int `json:"per_minute"`
	PerDay     int `json:"per_day"`
}

// Limiter admits requests while the trailing 60s and 24h windows are under
// their limits. A Limiter is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	perMinute  int
	perDay     int
	timestamps []time.Time // ascending, all within the trailing 24h after prune

	now func() time.Time
}

// New returns a Limiter with the given limits. Non-positive limits deny every request.
func New(perMinute, perDay int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perDay:    perDay,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// TryAcquire records a request if both windows have room. Denied attempts
// record nothing. The daily limit is checked first.
func (l *Limiter) TryAcquire() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.timestamps) >= l.perDay {
		return Decision{Allowed: false, Reason: ReasonDailyLimit}
	}
	if l.countSince(now.Add(-minuteWindow)) >= l.perMinute {
		return Decision{Allowed: false, Reason: ReasonMinuteLimit}
	}

	l.timestamps = append(l.timestamps, now)
	return Decision{Allowed: true}
}

// Stats reports the window counts as of now.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	return Stats{
		LastMinute: l.countSince(now.Add(-minuteWindow)),
		LastDay:    len(l.timestamps),
		PerMinute:  l.perMinute,
		PerDay:     l.perDay,
	}
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-dayWindow)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}

// countSince counts timestamps strictly after t.
func (l *Limiter) countSince(t time.Time) int {
	n := 0
	for j := len(l.timestamps) - 1; j >= 0 && l.timestamps[j].After(t); j-- {
		n++
	}
	return n
}

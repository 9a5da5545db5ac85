// Package ratelimit bounds the number of moderation actions executed per
// guild inside a sliding one-minute window.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the trailing period actions are counted over.
const Window = time.Minute

// Limiter tracks executed action timestamps per guild. State is purely
// in-process and rebuilds empty on restart.
type Limiter struct {
	mu      sync.Mutex
	actions map[uint64][]time.Time
	window  time.Duration
	now     func() time.Time
}

// New creates a limiter with the standard one-minute window.
func New() *Limiter {
	return NewWithClock(Window, time.Now)
}

// NewWithClock creates a limiter with a custom window and clock source.
// Used by tests to advance time deterministically.
func NewWithClock(window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		actions: make(map[uint64][]time.Time),
		window:  window,
		now:     now,
	}
}

// Allowed reports whether the guild has budget for one more action.
// maxPerMinute of zero or below disables the limit.
func (l *Limiter) Allowed(guildID uint64, maxPerMinute int) bool {
	if maxPerMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(guildID)

	return len(recent) < maxPerMinute
}

// Record registers an executed action against the guild's window.
func (l *Limiter) Record(guildID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.actions[guildID] = append(l.prune(guildID), l.now())
}

// prune drops timestamps that fell out of the window. Caller holds the lock.
func (l *Limiter) prune(guildID uint64) []time.Time {
	cutoff := l.now().Add(-l.window)

	recent := l.actions[guildID][:0]
	for _, ts := range l.actions[guildID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) == 0 {
		delete(l.actions, guildID)
		return nil
	}

	l.actions[guildID] = recent

	return recent
}

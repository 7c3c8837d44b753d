package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window admission counter: at most max admissions
// within any trailing window. Timestamps whose age equals the window are
// already expired (strict age < window). State is in-memory only.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	now    func() time.Time
	stamps []time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window, now: time.Now}
}

// NewWithClock injects the time source for tests.
func NewWithClock(max int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{max: max, window: window, now: now}
}

// TryAdmit records and admits the action iff capacity remains in the
// current window. Rejection has no side effect.
func (l *Limiter) TryAdmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.evict(now)
	if len(l.stamps) >= l.max {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Remaining reports how many more admissions the current window allows.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	remaining := l.max - len(l.stamps)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Limiter) evict(now time.Time) {
	kept := l.stamps[:0]
	for _, t := range l.stamps {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	l.stamps = kept
}

// Package ratelimit implements a fixed-window request counter shared across
// all requests handled by the process. The table grows with the number of
// distinct keys; expired windows are swept opportunistically on Check, so the
// steady-state bound is the number of keys active within one window.
package ratelimit

import (
	"sync"
	"time"
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count int
	start time.Time
}

type Limiter struct {
	mu            sync.Mutex
	max           int
	window        time.Duration
	windows       map[string]*window
	lastSweep     time.Time
	sweepInterval time.Duration
	now           func() time.Time
}

func New(max int, windowDur time.Duration) *Limiter {
	return &Limiter{
		max:           max,
		window:        windowDur,
		windows:       make(map[string]*window),
		sweepInterval: windowDur,
		now:           time.Now,
	}
}

// Check records one request for key and reports whether it is allowed. The
// read-check-increment sequence runs under the limiter mutex; requests are
// handled concurrently and share this table.
func (l *Limiter) Check(key string) Result {
	if l.max <= 0 || l.window <= 0 {
		return Result{Allowed: true}
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepExpiredLocked(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{count: 1, start: now}
		return Result{Allowed: true, Remaining: l.max - 1, ResetAt: now.Add(l.window)}
	}
	w.count++
	resetAt := w.start.Add(l.window)
	if w.count > l.max {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	return Result{Allowed: true, Remaining: l.max - w.count, ResetAt: resetAt}
}

func (l *Limiter) sweepExpiredLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.sweepInterval {
		return
	}
	l.lastSweep = now
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}

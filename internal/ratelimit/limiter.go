// Package ratelimit implements the per-caller sliding-window request budget.
//
// DESIGN: Counters are keyed by (caller, window) where window is the unix
// time divided by the window width. There is no background goroutine: stale
// windows are swept opportunistically when the tracked-entry count crosses a
// threshold, which bounds memory without a timer.
//
// The limiter is process-local, best-effort fairness. Under horizontal
// scale-out each instance enforces its own budget independently.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type entryKey struct {
	caller string
	window int64
}

// Limiter admits or rejects requests against a fixed per-window capacity.
type Limiter struct {
	mu             sync.Mutex
	window         time.Duration
	capacity       int
	sweepThreshold int
	counts         map[entryKey]int

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter admitting at most capacity requests per caller per
// window. sweepThreshold bounds the counter map size before stale windows
// are garbage-collected.
func New(window time.Duration, capacity, sweepThreshold int) *Limiter {
	return &Limiter{
		window:         window,
		capacity:       capacity,
		sweepThreshold: sweepThreshold,
		counts:         make(map[entryKey]int),
		now:            time.Now,
	}
}

// Admit reports whether caller may make one more request in the current
// window. The counter is only incremented on admission.
//
// Policy: if the bookkeeping itself fails, the limiter fails open and admits
// the request rather than blocking all traffic on a limiter bug.
func (l *Limiter) Admit(caller string) (admitted bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("rate limiter failure, failing open")
			admitted = true
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.currentWindow()
	key := entryKey{caller: caller, window: window}

	if l.counts[key] >= l.capacity {
		return false
	}
	l.counts[key]++

	if len(l.counts) > l.sweepThreshold {
		l.sweep(window)
	}
	return true
}

// RetryAfter returns the number of seconds until the current window rolls
// over, for Retry-After headers and error payloads. Always at least 1.
func (l *Limiter) RetryAfter() int {
	nowUnix := l.now().Unix()
	windowSec := int64(l.window / time.Second)
	remaining := windowSec - nowUnix%windowSec
	if remaining < 1 {
		remaining = 1
	}
	return int(remaining)
}

func (l *Limiter) currentWindow() int64 {
	return l.now().Unix() / int64(l.window/time.Second)
}

// sweep deletes entries more than one window behind current. Callers hold
// the lock.
func (l *Limiter) sweep(current int64) {
	for key := range l.counts {
		if key.window < current-1 {
			delete(l.counts, key)
		}
	}
}

// Len reports the number of tracked entries. Exposed for tests and the
// stats endpoint.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts)
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// MemoryLimiter is an in-process fixed-window limiter. Windows are created
// lazily per key and reset in place once elapsed; a background sweep drops
// keys whose window has long expired.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	done    chan struct{}
}

// NewMemoryLimiter creates a limiter allowing limit requests per period for
// each (identifier, action) pair.
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// WithClock overrides the clock, for tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Close stops the background sweep.
func (l *MemoryLimiter) Close() {
	close(l.done)
}

func (l *MemoryLimiter) sweep() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for k, w := range l.windows {
				if now.Sub(w.start) > 2*l.period {
					delete(l.windows, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Check reports whether the next Consume would be allowed, without counting.
func (l *MemoryLimiter) Check(_ context.Context, identifier, action string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key(identifier, action)]
	if !ok || now.Sub(w.start) >= l.period {
		return Result{Allowed: true, Remaining: l.limit}, nil
	}
	if w.count < l.limit {
		return Result{Allowed: true, Remaining: l.limit - w.count}, nil
	}
	return Result{Allowed: false, RetryAfter: w.start.Add(l.period).Sub(now)}, nil
}

// Consume atomically checks the quota and increments the counter. An elapsed
// window resets to count 1 with a fresh start.
func (l *MemoryLimiter) Consume(_ context.Context, identifier, action string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(identifier, action)
	w, ok := l.windows[k]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[k] = &window{count: 1, start: now}
		return Result{Allowed: true, Remaining: l.limit - 1}, nil
	}

	if w.count < l.limit {
		w.count++
		return Result{Allowed: true, Remaining: l.limit - w.count}, nil
	}

	return Result{Allowed: false, RetryAfter: w.start.Add(l.period).Sub(now)}, nil
}

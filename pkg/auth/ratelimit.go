package auth

import (
	"sync"
	"time"
)

// Limiter caps requests per subject in fixed one-minute windows.
type Limiter struct {
	rpm int
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	startAt time.Time
}

// NewLimiter returns a limiter that allows rpm requests per subject and
// minute. A non-positive rpm disables limiting.
func NewLimiter(rpm int) *Limiter {
	return &Limiter{
		rpm:     rpm,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records one request by subject and reports whether it fits the
// current window.
func (l *Limiter) Allow(subject string) bool {
	if l == nil || l.rpm <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[subject]
	if !ok || now.Sub(w.startAt) >= time.Minute {
		l.windows[subject] = &window{count: 1, startAt: now}
		l.prune(now)
		return true
	}
	w.count++
	return w.count <= l.rpm
}

// prune drops expired windows. Called with mu held.
func (l *Limiter) prune(now time.Time) {
	for subject, w := range l.windows {
		if now.Sub(w.startAt) >= time.Minute {
			delete(l.windows, subject)
		}
	}
}

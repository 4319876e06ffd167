package engine

import (
	"sync"
	"time"
)

// Limiter throttles rule firing per workspace. It is injected by the caller
// so deployments can back it with a shared store; the engine only consults
// it. A nil limiter means no throttling.
type Limiter interface {
	Allow(workspaceID string) bool
}

// WindowLimiter is a sliding-window in-process limiter: at most limit
// allowances per workspace per window.
type WindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// Ensure WindowLimiter implements Limiter
var _ Limiter = (*WindowLimiter)(nil)

// NewWindowLimiter creates a limiter allowing limit firings per window
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records one attempt for workspaceID and reports whether it is within
// the window limit
func (l *WindowLimiter) Allow(workspaceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[workspaceID][:0]
	for _, hit := range l.hits[workspaceID] {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= l.limit {
		l.hits[workspaceID] = recent
		return false
	}

	l.hits[workspaceID] = append(recent, now)
	return true
}

// Package sched owns the funnel's timing machinery: quiescence tracking,
// single-rotation bookkeeping, and supervised background tasks.
package sched

import (
	"context"
	"sync"
	"time"
)

// pollStep bounds each sleep inside WaitQuiet so a send landing mid-wait is
// noticed promptly instead of after one long sleep.
const pollStep = 5 * time.Second

// Tracker is the single synchronization point for the per-user ephemeral
// state: the last outbound send time and the set of users with a live
// rotation loop. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	lastSent map[int64]time.Time
	rotating map[int64]struct{}

	now func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		lastSent: make(map[int64]time.Time),
		rotating: make(map[int64]struct{}),
		now:      time.Now,
	}
}

// MarkSent records a successful outbound delivery to the user, restarting
// their quiescence window.
func (t *Tracker) MarkSent(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent[userID] = t.now()
}

// SinceLastSend returns the elapsed time since the last recorded delivery to
// the user. Users never sent to report a very large elapsed time.
func (t *Tracker) SinceLastSend(userID int64) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastSent[userID]
	if !ok {
		return time.Duration(1<<62 - 1)
	}
	return t.now().Sub(last)
}

// TryAcquireRotation atomically claims the rotation slot for a user. It
// returns false when a loop is already active, making a second concurrent
// start a no-op.
func (t *Tracker) TryAcquireRotation(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, active := t.rotating[userID]; active {
		return false
	}
	t.rotating[userID] = struct{}{}
	return true
}

// ReleaseRotation frees the rotation slot. Safe to call when not held.
func (t *Tracker) ReleaseRotation(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rotating, userID)
}

// RotationActive reports whether a rotation loop currently holds the slot.
func (t *Tracker) RotationActive(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, active := t.rotating[userID]
	return active
}

// WaitQuiet blocks until a full window of outbound silence has elapsed for the
// user. A delivery recorded during the wait restarts the window, so the wait
// terminates only once the user has been quiet for the whole duration.
// Returns the context error when canceled first.
func (t *Tracker) WaitQuiet(ctx context.Context, userID int64, window time.Duration) error {
	for {
		elapsed := t.SinceLastSend(userID)
		if elapsed >= window {
			return nil
		}

		remaining := window - elapsed
		if remaining > pollStep {
			remaining = pollStep
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

package sched

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tg_funnel_bot/internal/logging"
)

// Runner supervises the per-user background tasks (nudges, reminders, rotation
// loops). Every task runs under the runner's context, is tracked for shutdown,
// and has panics caught at its boundary so one bad task cannot take down the
// process or terminate silently.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *logrus.Entry
}

// NewRunner creates a runner whose tasks stop when parent is canceled.
func NewRunner(parent context.Context, logger *logrus.Entry) *Runner {
	if parent == nil {
		parent = context.Background()
	}
	if logger == nil {
		logger = logging.Logger()
	}

	ctx, cancel := context.WithCancel(parent)
	return &Runner{ctx: ctx, cancel: cancel, logger: logger}
}

// Go launches a supervised task. The task receives the runner's context and
// should return promptly once it is canceled.
func (r *Runner) Go(name string, task func(ctx context.Context)) {
	if task == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.WithFields(logging.Fields{
					"event": "task_panic",
					"task":  name,
					"panic": rec,
				}).Error("background task panicked")
			}
		}()

		task(r.ctx)
	}()
}

// After runs the task once the delay elapses, unless the runner shuts down
// first. Cancellation conditions belong inside the task so they are evaluated
// at fire time, not at schedule time.
func (r *Runner) After(name string, delay time.Duration, task func(ctx context.Context)) {
	r.Go(name, func(ctx context.Context) {
		if !Sleep(ctx, delay) {
			return
		}
		task(ctx)
	})
}

// Shutdown cancels all tasks and waits for them to finish, bounded by ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sleep waits for d, returning false when ctx is canceled first.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

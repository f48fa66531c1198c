package funnel

import (
	"context"

	"tg_funnel_bot/internal/logging"
	"tg_funnel_bot/internal/sched"
)

// StartRotation launches the promotional rotation loop for a user. At most one
// loop runs per user: a second start while one is active is a no-op and
// reports false.
func (e *Engine) StartRotation(userID int64) bool {
	if !e.tracker.TryAcquireRotation(userID) {
		e.logger.WithFields(logging.Fields{
			"event":   "rotation_already_active",
			"user_id": userID,
		}).Debug("rotation start ignored")
		return false
	}

	e.runner.Go("rotation", func(ctx context.Context) {
		defer e.tracker.ReleaseRotation(userID)
		e.rotate(ctx, userID)
	})

	return true
}

// rotate cycles the promo pool indefinitely. Stop conditions (loop stopped,
// user unreachable) are read from the store at every iteration boundary so
// they take effect within one item, and each send waits out the quiescence
// window so automated posts never land on top of other traffic.
func (e *Engine) rotate(ctx context.Context, userID int64) {
	posts := e.content.Posts()
	if len(posts) == 0 {
		return
	}

	first := true
	for pass := 0; ; pass++ {
		for _, post := range posts {
			if !first {
				if !sched.Sleep(ctx, e.cfg.RotationInterval) {
					return
				}
			}
			first = false

			user, err := e.store.Get(ctx, userID)
			if err != nil {
				e.logger.WithFields(logging.Fields{
					"event":   "rotation_read_failed",
					"user_id": userID,
				}).WithError(err).Warn("skipping rotation item")
				continue
			}
			if user.LoopStopped || !user.PMReachable {
				e.logger.WithFields(logging.Fields{
					"event":   "rotation_stopped",
					"user_id": userID,
				}).Info("rotation loop terminating")
				return
			}

			if err := e.tracker.WaitQuiet(ctx, userID, e.cfg.QuietWindow); err != nil {
				return
			}

			delivery := e.gw.SendPost(ctx, userID, post, e.content.RotationKeyboard(user.Stage))
			if delivery.Unreachable() {
				_ = e.markUnreachable(ctx, userID)
				return
			}
			if !delivery.OK() {
				e.logger.WithFields(logging.Fields{
					"event":   "rotation_item_failed",
					"user_id": userID,
					"result":  delivery.Result.String(),
				}).Warn("rotation item not delivered, continuing")
			}
		}

		if pass == 0 {
			if err := e.store.SetFirstRotationDone(ctx, userID); err != nil {
				e.logger.WithFields(logging.Fields{
					"event":   "rotation_flag_failed",
					"user_id": userID,
				}).WithError(err).Warn("could not record first rotation pass")
			}
		}
	}
}

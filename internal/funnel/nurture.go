package funnel

import (
	"context"
	"time"

	"tg_funnel_bot/internal/logging"
	"tg_funnel_bot/internal/sched"
)

// promoBlockDelay separates the two promo blocks after lesson 3. A var so
// tests can shorten it.
var promoBlockDelay = time.Minute

// startAccessNurture arms the get-access nudge schedule. Each delay is slept
// in turn and the stage is re-checked at fire time: the loop ends as soon as
// the user has taken lesson 1, the user becomes unreachable, or the schedule
// is exhausted.
func (e *Engine) startAccessNurture(userID int64) {
	e.runner.Go("access_nurture", func(ctx context.Context) {
		for i, delay := range e.cfg.AccessNudgeDelays {
			if !sched.Sleep(ctx, delay) {
				return
			}

			user, err := e.store.Get(ctx, userID)
			if err != nil {
				e.logger.WithFields(logging.Fields{
					"event":   "nurture_read_failed",
					"user_id": userID,
				}).WithError(err).Warn("stopping access nudges")
				return
			}
			if user.Stage >= 1 || !user.PMReachable {
				return
			}

			delivery := e.gw.SendText(ctx, userID, e.content.NudgeText(i), e.content.AccessKeyboard())
			if delivery.Unreachable() {
				_ = e.markUnreachable(ctx, userID)
				return
			}
			if !delivery.OK() {
				// A failed nudge is skipped; the rest of the schedule still runs.
				continue
			}
		}
	})
}

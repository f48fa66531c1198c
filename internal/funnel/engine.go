// Package funnel implements the per-user funnel state machine: entry, staged
// lesson unlocks, the subscription gate, and the promotional rotation. It is
// the single writer of the stage watermark and its companion flags.
package funnel

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"tg_funnel_bot/internal/catalog"
	"tg_funnel_bot/internal/config"
	"tg_funnel_bot/internal/domain"
	"tg_funnel_bot/internal/gateway"
	"tg_funnel_bot/internal/logging"
	"tg_funnel_bot/internal/sched"
)

// Store is the persistent per-user state the engine reads and writes.
type Store interface {
	Ensure(ctx context.Context, userID int64) (bool, error)
	Get(ctx context.Context, userID int64) (domain.User, error)
	AdvanceStage(ctx context.Context, userID int64, target int) error
	ResetStage(ctx context.Context, userID int64) error
	SetPMReachable(ctx context.Context, userID int64, reachable bool) error
	SetDiaryRequest(ctx context.Context, userID int64) error
	SetFirstRotationDone(ctx context.Context, userID int64) error
	SetLoopStopped(ctx context.Context, userID int64, stopped bool) error
}

// Messenger is the delivery capability the engine needs from the gateway.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, kb catalog.Keyboard) gateway.Delivery
	SendLessonLink(ctx context.Context, chatID int64, url string) gateway.Delivery
	SendBlock(ctx context.Context, chatID int64, block catalog.Block) gateway.Delivery
	SendMedia(ctx context.Context, chatID int64, ref catalog.MediaRef, caption string, kb catalog.Keyboard) gateway.Delivery
	SendPost(ctx context.Context, chatID int64, post catalog.Post, kb catalog.Keyboard) gateway.Delivery
	EditAffordances(ctx context.Context, chatID int64, messageID int, kb catalog.Keyboard) error
	GetChannelMembership(ctx context.Context, channelID, userID int64) (gateway.Membership, error)
	ApproveJoinRequest(ctx context.Context, channelID, userID int64) error
}

// Engine drives the funnel for all users. All public operations are safe to
// invoke from concurrent dispatcher goroutines; stage mutations go through the
// store's per-key atomic updates.
type Engine struct {
	cfg     config.Config
	store   Store
	gw      Messenger
	content *catalog.Catalog
	tracker *sched.Tracker
	runner  *sched.Runner
	logger  *logrus.Entry
}

// New wires an Engine from its collaborators.
func New(cfg config.Config, store Store, gw Messenger, content *catalog.Catalog, tracker *sched.Tracker, runner *sched.Runner, logger *logrus.Entry) (*Engine, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if gw == nil {
		return nil, errors.New("messenger is required")
	}
	if content == nil {
		return nil, errors.New("catalog is required")
	}
	if tracker == nil {
		return nil, errors.New("tracker is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &Engine{
		cfg:     cfg,
		store:   store,
		gw:      gw,
		content: content,
		tracker: tracker,
		runner:  runner,
		logger:  logger,
	}, nil
}

// OnEntry starts (or restarts) the welcome sequence: the record is reset to
// stage 0, the welcome and intro blocks go out, and the get-access nudge
// schedule is armed. Re-entry deliberately restarts progress.
func (e *Engine) OnEntry(ctx context.Context, userID int64) error {
	if _, err := e.store.Ensure(ctx, userID); err != nil {
		return err
	}
	if err := e.store.ResetStage(ctx, userID); err != nil {
		return err
	}
	if err := e.store.SetLoopStopped(ctx, userID, false); err != nil {
		return err
	}

	e.logger.WithFields(logging.Fields{
		"event":   "funnel_entry",
		"user_id": userID,
	}).Info("welcome sequence started")

	if d := e.gw.SendBlock(ctx, userID, e.content.WelcomeBlock()); d.Unreachable() {
		return e.markUnreachable(ctx, userID)
	}
	if d := e.gw.SendBlock(ctx, userID, e.content.IntroBlock()); d.Unreachable() {
		return e.markUnreachable(ctx, userID)
	}

	e.startAccessNurture(userID)

	return nil
}

// OnAdvanceRequest handles the open-lesson affordance. The gate for the
// channel-gated stage is evaluated at this very moment, never from an earlier
// check. The triggering affordance is stripped first so a stale render cannot
// advance twice.
func (e *Engine) OnAdvanceRequest(ctx context.Context, userID int64, target, messageID int) error {
	e.stripAffordances(ctx, userID, messageID)

	if target < domain.StageLesson1 || target > domain.StageLesson3 {
		return nil
	}

	if _, err := e.store.Ensure(ctx, userID); err != nil {
		return err
	}
	user, err := e.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	// Skipping ahead is rejected with a nudge toward the next unlockable lesson.
	if target > user.Stage+1 {
		next := user.Stage + 1
		if text, ok := e.content.ReminderText(next); ok {
			e.gw.SendText(ctx, userID, text, e.content.OpenKeyboard(next))
		}
		return nil
	}

	if target == domain.StageGated && e.cfg.GateEnabled() {
		passed, gateErr := e.gatePassed(ctx, user)
		if gateErr != nil {
			return gateErr
		}
		if !passed {
			e.gw.SendBlock(ctx, userID, e.content.GateBlock())
			return nil
		}
	}

	return e.unlockLesson(ctx, userID, target)
}

// OnGateCheck handles the check-again affordance of the gate prompt. A short
// grace delay absorbs propagation lag in the membership system before the
// re-check; failure re-renders the prompt unchanged.
func (e *Engine) OnGateCheck(ctx context.Context, userID int64, messageID int) error {
	e.stripAffordances(ctx, userID, messageID)

	if _, err := e.store.Ensure(ctx, userID); err != nil {
		return err
	}

	if !sched.Sleep(ctx, e.cfg.GateGraceDelay) {
		return ctx.Err()
	}

	user, err := e.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	passed, err := e.gatePassed(ctx, user)
	if err != nil {
		return err
	}
	if !passed {
		e.gw.SendText(ctx, userID, catalog.GateRetryText(), e.content.GateKeyboard())
		return nil
	}

	e.gw.SendText(ctx, userID, catalog.GatePassedText(), nil)

	return e.unlockLesson(ctx, userID, domain.StageGated)
}

// OnJoinRequest routes a channel join request. The diary channel branch is
// silent: approve and record the request, which is what the lesson-3 gate
// later reads. The primary channel branch is the funnel's push entry point.
func (e *Engine) OnJoinRequest(ctx context.Context, chatID, userID int64) error {
	if _, err := e.store.Ensure(ctx, userID); err != nil {
		return err
	}

	if e.cfg.GateEnabled() && chatID == e.cfg.DiaryChatID {
		if err := e.gw.ApproveJoinRequest(ctx, chatID, userID); err != nil {
			e.logger.WithFields(logging.Fields{
				"event":   "diary_approve_failed",
				"user_id": userID,
			}).WithError(err).Warn("diary join request approval failed")
		}
		if err := e.store.SetDiaryRequest(ctx, userID); err != nil {
			return err
		}

		e.logger.WithFields(logging.Fields{
			"event":   "diary_request_recorded",
			"user_id": userID,
		}).Info("diary join request captured")

		return nil
	}

	if err := e.gw.ApproveJoinRequest(ctx, chatID, userID); err != nil {
		e.logger.WithFields(logging.Fields{
			"event":   "join_approve_failed",
			"user_id": userID,
			"chat_id": chatID,
		}).WithError(err).Warn("channel join request approval failed")
	}

	return e.OnEntry(ctx, userID)
}

// StopRotation permanently halts the promo rotation for the user (e.g. after
// a purchase). The running loop observes the flag at its next iteration.
func (e *Engine) StopRotation(ctx context.Context, userID int64) error {
	return e.store.SetLoopStopped(ctx, userID, true)
}

// gatePassed evaluates the lesson-3 gate right now: a recorded diary join
// request, or live channel membership. A membership query error reads as not
// passed; the gate prompt is the designed response, not an error.
func (e *Engine) gatePassed(ctx context.Context, user domain.User) (bool, error) {
	if !e.cfg.GateEnabled() {
		return true, nil
	}
	if user.GatePassed() {
		return true, nil
	}

	membership, err := e.gw.GetChannelMembership(ctx, e.cfg.DiaryChatID, user.UserID)
	if err != nil {
		e.logger.WithFields(logging.Fields{
			"event":   "gate_check_error",
			"user_id": user.UserID,
		}).WithError(err).Warn("membership query failed, treating as not subscribed")
		return false, nil
	}

	return membership.Joined(), nil
}

// unlockLesson delivers the lesson content, advances the watermark, and arms
// the follow-up schedule for the stage reached.
func (e *Engine) unlockLesson(ctx context.Context, userID int64, target int) error {
	if d := e.gw.SendLessonLink(ctx, userID, e.content.LessonURL(target)); d.Unreachable() {
		return e.markUnreachable(ctx, userID)
	}

	if err := e.store.AdvanceStage(ctx, userID, target); err != nil {
		return err
	}

	e.logger.WithFields(logging.Fields{
		"event":   "stage_advanced",
		"user_id": userID,
		"stage":   target,
	}).Info("lesson unlocked")

	switch target {
	case domain.StageLesson1, domain.StageLesson2:
		e.scheduleNextTeaser(userID, target)
	case domain.StageLesson3:
		e.finishLessonTrack(userID)
	}

	return nil
}

// scheduleNextTeaser arms the bridge content for lesson n+1. The stage is
// re-checked when the timer fires: a user who advanced on their own is not
// teased about a lesson they already opened.
func (e *Engine) scheduleNextTeaser(userID int64, opened int) {
	e.runner.After("lesson_teaser", e.cfg.NextLessonDelay, func(ctx context.Context) {
		user, err := e.store.Get(ctx, userID)
		if err != nil || user.Stage > opened || !user.PMReachable {
			return
		}

		block, ok := e.content.AfterLessonBlock(opened)
		if !ok {
			return
		}
		if d := e.gw.SendBlock(ctx, userID, block); d.Unreachable() {
			_ = e.markUnreachable(ctx, userID)
			return
		}

		switch opened {
		case 1:
			e.gw.SendText(ctx, userID, "Open the second lesson 👇", e.content.OpenKeyboard(2))
		case 2:
			e.gw.SendBlock(ctx, userID, e.content.GateBlock())
		}
	})
}

// finishLessonTrack runs the post-lesson-3 sequence: the follow-up video, the
// two promo blocks, and the indefinite rotation loop.
func (e *Engine) finishLessonTrack(userID int64) {
	if ref, caption, ok := e.content.FollowupVideo(); ok {
		e.runner.After("followup_video", e.cfg.FollowupDelay, func(ctx context.Context) {
			if d := e.gw.SendMedia(ctx, userID, ref, caption, nil); d.Unreachable() {
				_ = e.markUnreachable(ctx, userID)
			}
		})
	}

	e.runner.After("promo_blocks", e.cfg.FollowupDelay+promoBlockDelay, func(ctx context.Context) {
		if d := e.gw.SendBlock(ctx, userID, e.content.PromoCourseBlock()); d.Unreachable() {
			_ = e.markUnreachable(ctx, userID)
			return
		}
		if !sched.Sleep(ctx, promoBlockDelay) {
			return
		}
		if d := e.gw.SendBlock(ctx, userID, e.content.PromoMentorBlock()); d.Unreachable() {
			_ = e.markUnreachable(ctx, userID)
			return
		}

		e.StartRotation(userID)
	})
}

func (e *Engine) stripAffordances(ctx context.Context, userID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := e.gw.EditAffordances(ctx, userID, messageID, nil); err != nil {
		e.logger.WithFields(logging.Fields{
			"event":   "strip_affordances_failed",
			"user_id": userID,
		}).WithError(err).Debug("could not strip affordances")
	}
}

func (e *Engine) markUnreachable(ctx context.Context, userID int64) error {
	e.logger.WithFields(logging.Fields{
		"event":   "user_unreachable",
		"user_id": userID,
	}).Info("direct messages forbidden, halting sends")

	return e.store.SetPMReachable(ctx, userID, false)
}

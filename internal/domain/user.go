// Package domain defines the funnel's persistent user record and stage model.
package domain

import "time"

// Funnel stages. The stage number is a watermark of progress: stage N means
// lesson N has been unlocked. It only moves forward, except for the explicit
// reset on a fresh welcome sequence.
const (
	StageEntered = 0
	StageLesson1 = 1
	StageLesson2 = 2
	StageLesson3 = 3

	// StageGated is the stage that requires the subscription gate to pass.
	StageGated = StageLesson3
)

// User is the durable funnel state for one Telegram user.
type User struct {
	UserID    int64     `bson:"user_id" json:"user_id"`
	Stage     int       `bson:"stage" json:"stage"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	// PMReachable flips to false once a forbidden delivery error is observed
	// and back to true on a fresh inbound interaction.
	PMReachable bool `bson:"pm_ok" json:"pm_ok"`

	// Watched holds the legacy per-lesson view confirmations. The current flow
	// gates on stage alone; the field survives for records written by the old flow.
	Watched map[string]bool `bson:"watched,omitempty" json:"watched,omitempty"`

	DiaryRequested   bool      `bson:"diary_request" json:"diary_request"`
	DiaryRequestedAt time.Time `bson:"diary_ts,omitempty" json:"diary_ts,omitempty"`

	FirstRotationDone bool `bson:"first_rotation_done" json:"first_rotation_done"`
	LoopStopped       bool `bson:"loop_stopped" json:"loop_stopped"`
}

// GatePassed reports whether the user satisfies the lesson-3 gate from the
// persisted record alone (a live membership check may still pass when this is false).
func (u User) GatePassed() bool {
	return u.DiaryRequested
}

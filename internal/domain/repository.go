package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no record exists for the requested user.
var ErrNotFound = errors.New("user not found")

// userCollection is the subset of mongo collection behavior the repository
// relies on, narrow enough to fake in tests.
type userCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// UserRepository persists funnel state in MongoDB. Every mutation is a single
// per-key update document so concurrent writers cannot lose each other's
// fields, and stage advancement uses $max so the monotonic-stage invariant
// holds even when an advance races a reminder.
type UserRepository struct {
	users userCollection
}

// NewUserRepository constructs a UserRepository over the users collection.
func NewUserRepository(users userCollection) *UserRepository {
	return &UserRepository{users: users}
}

// Ensure upserts the record for a first contact and refreshes updated_at.
// A fresh inbound interaction also restores reachability: the user is talking
// to us right now, so earlier forbidden results no longer apply.
func (r *UserRepository) Ensure(ctx context.Context, userID int64) (created bool, err error) {
	if err := r.guard(ctx, userID); err != nil {
		return false, err
	}

	now := nowUTC()
	update := bson.M{
		"$set": bson.M{
			"updated_at": now,
			"pm_ok":      true,
		},
		"$setOnInsert": bson.M{
			"user_id":             userID,
			"stage":               StageEntered,
			"created_at":          now,
			"diary_request":       false,
			"first_rotation_done": false,
			"loop_stopped":        false,
		},
	}

	result, err := r.users.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}

	return result != nil && result.UpsertedCount > 0, nil
}

// Get fetches the record for a user, returning ErrNotFound when absent.
func (r *UserRepository) Get(ctx context.Context, userID int64) (User, error) {
	if err := r.guard(ctx, userID); err != nil {
		return User{}, err
	}

	result := r.users.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return User{}, errors.New("find user returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}

	return user, nil
}

// AdvanceStage raises the stage watermark to target if it is ahead of the
// stored value. Falling behind is impossible: $max never lowers the field.
func (r *UserRepository) AdvanceStage(ctx context.Context, userID int64, target int) error {
	if err := r.guard(ctx, userID); err != nil {
		return err
	}
	if target < StageEntered {
		return fmt.Errorf("stage %d is not a valid target", target)
	}

	update := bson.M{
		"$max": bson.M{"stage": target},
		"$set": bson.M{"updated_at": nowUTC()},
	}

	if _, err := r.users.UpdateOne(ctx, bson.M{"user_id": userID}, update); err != nil {
		return fmt.Errorf("advance stage: %w", err)
	}

	return nil
}

// ResetStage rewinds the watermark to StageEntered. This is the only sanctioned
// backwards move, used when the welcome sequence restarts.
func (r *UserRepository) ResetStage(ctx context.Context, userID int64) error {
	return r.setFields(ctx, userID, bson.M{"stage": StageEntered})
}

// SetPMReachable records whether direct messages to the user still go through.
func (r *UserRepository) SetPMReachable(ctx context.Context, userID int64, reachable bool) error {
	return r.setFields(ctx, userID, bson.M{"pm_ok": reachable})
}

// SetDiaryRequest records that the user submitted a join request to the diary channel.
func (r *UserRepository) SetDiaryRequest(ctx context.Context, userID int64) error {
	return r.setFields(ctx, userID, bson.M{"diary_request": true, "diary_ts": nowUTC()})
}

// SetWatched flags a lesson as confirmed viewed. Legacy flow support; the
// stage-gated flow never reads these flags.
func (r *UserRepository) SetWatched(ctx context.Context, userID int64, lesson int, watched bool) error {
	if lesson < StageLesson1 || lesson > StageLesson3 {
		return fmt.Errorf("lesson %d is out of range", lesson)
	}
	return r.setFields(ctx, userID, bson.M{fmt.Sprintf("watched.%d", lesson): watched})
}

// SetFirstRotationDone marks that the promo pool has completed one full pass.
func (r *UserRepository) SetFirstRotationDone(ctx context.Context, userID int64) error {
	return r.setFields(ctx, userID, bson.M{"first_rotation_done": true})
}

// SetLoopStopped permanently halts (or resumes) the promo rotation for the user.
func (r *UserRepository) SetLoopStopped(ctx context.Context, userID int64, stopped bool) error {
	return r.setFields(ctx, userID, bson.M{"loop_stopped": stopped})
}

// CountUsers returns the number of tracked users.
func (r *UserRepository) CountUsers(ctx context.Context) (int64, error) {
	if r == nil || r.users == nil {
		return 0, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	count, err := r.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

func (r *UserRepository) setFields(ctx context.Context, userID int64, fields bson.M) error {
	if err := r.guard(ctx, userID); err != nil {
		return err
	}

	fields["updated_at"] = nowUTC()

	if _, err := r.users.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": fields}); err != nil {
		return fmt.Errorf("update user fields: %w", err)
	}

	return nil
}

func (r *UserRepository) guard(ctx context.Context, userID int64) error {
	if r == nil || r.users == nil {
		return errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if userID == 0 {
		return errors.New("user id is required")
	}
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type upsertCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// CapturedMedia is a Telegram file id forwarded to the bot by an operator,
// kept so it can later be wired into the catalog without re-uploading.
type CapturedMedia struct {
	FileID      string    `bson:"file_id" json:"file_id"`
	ContentType string    `bson:"content_type" json:"content_type"`
	ChatID      int64     `bson:"chat_id" json:"chat_id"`
	CapturedAt  time.Time `bson:"captured_at" json:"captured_at"`
}

// MediaVault records operator-captured media identifiers. It is a convenience
// slot, not part of the funnel logic.
type MediaVault struct {
	media upsertCollection
}

// NewMediaVault constructs a MediaVault over the captured-media collection.
func NewMediaVault(media upsertCollection) *MediaVault {
	return &MediaVault{media: media}
}

// Save upserts a captured file id, refreshing captured_at on repeats.
func (v *MediaVault) Save(ctx context.Context, item CapturedMedia) error {
	if v == nil || v.media == nil {
		return errors.New("media vault is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if item.FileID == "" {
		return errors.New("file id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"content_type": item.ContentType,
			"chat_id":      item.ChatID,
			"captured_at":  now,
		},
		"$setOnInsert": bson.M{
			"file_id": item.FileID,
		},
	}

	if _, err := v.media.UpdateOne(ctx, bson.M{"file_id": item.FileID}, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("save captured media: %w", err)
	}

	return nil
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_funnel_bot/internal/catalog"
	"tg_funnel_bot/internal/logging"
	"tg_funnel_bot/internal/store"
)

func (c *Client) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}

	uid := update.Message.From.ID
	if err := c.funnel.OnEntry(ctx, uid); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "entry_failed",
			"user_id": uid,
		}).WithError(err).Error("welcome sequence failed")
	}
}

func (c *Client) handleOpen(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	answerCallback(ctx, b, cq.ID)

	target, err := strconv.Atoi(strings.TrimPrefix(cq.Data, catalog.CallbackOpenPrefix))
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event": "callback_malformed",
			"data":  cq.Data,
		}).Warn("ignoring malformed open callback")
		return
	}

	uid := cq.From.ID
	if err := c.funnel.OnAdvanceRequest(ctx, uid, target, messageID(cq.Message)); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "advance_failed",
			"user_id": uid,
			"stage":   target,
		}).WithError(err).Error("advance request failed")
	}
}

func (c *Client) handleGateCheck(ctx context.Context, b *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	answerCallback(ctx, b, cq.ID)

	uid := cq.From.ID
	if err := c.funnel.OnGateCheck(ctx, uid, messageID(cq.Message)); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "gate_check_failed",
			"user_id": uid,
		}).WithError(err).Error("gate check failed")
	}
}

func (c *Client) handleStats(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !c.isAdmin(msg.From.ID) {
		return
	}
	if c.stats == nil || c.diag == nil {
		return
	}

	count, err := c.stats.CountUsers(ctx)
	if err != nil {
		c.logger.WithField("event", "stats_failed").WithError(err).Error("user count failed")
		return
	}

	c.diag.SendText(ctx, msg.Chat.ID, fmt.Sprintf("Users tracked: %d", count), nil)
}

func (c *Client) handleDiag(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !c.isAdmin(msg.From.ID) {
		return
	}
	if c.diag == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Diag\n")
	fmt.Fprintf(&b, "deep link: %s\n", c.deepLink)
	fmt.Fprintf(&b, "gate enabled: %t\n", c.cfg.GateEnabled())
	fmt.Fprintf(&b, "quiet window: %s\n", c.cfg.QuietWindow)
	fmt.Fprintf(&b, "rotation interval: %s\n", c.cfg.RotationInterval)
	fmt.Fprintf(&b, "access nudges: %v", c.cfg.AccessNudgeDelays)

	c.diag.SendText(ctx, msg.Chat.ID, b.String(), nil)
}

// handleFollowupTest pushes the lesson-3 follow-up video through the full
// fallback chain so an operator can verify a newly configured reference.
func (c *Client) handleFollowupTest(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !c.isAdmin(msg.From.ID) {
		return
	}
	if c.diag == nil || c.content == nil {
		return
	}

	ref, caption, ok := c.content.FollowupVideo()
	if !ok {
		c.diag.SendText(ctx, msg.Chat.ID, "No follow-up video configured.", nil)
		return
	}

	delivery := c.diag.SendMedia(ctx, msg.Chat.ID, ref, caption, nil)
	c.diag.SendText(ctx, msg.Chat.ID, fmt.Sprintf("Follow-up send result: %s", delivery.Result), nil)
}

// handleDefault covers everything without a dedicated route: join requests go
// to the funnel, any media message is echoed back with its file id (and the id
// persisted) so operators can capture references, the rest is logged.
func (c *Client) handleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	if req := update.ChatJoinRequest; req != nil && c.funnel != nil {
		if err := c.funnel.OnJoinRequest(ctx, req.Chat.ID, req.From.ID); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":   "join_request_failed",
				"user_id": req.From.ID,
				"chat_id": req.Chat.ID,
			}).WithError(err).Error("join request handling failed")
		}
		return
	}

	if msg := firstMessage(update); msg != nil {
		if c.captureMedia(ctx, b, msg) {
			return
		}
	}

	meta := extractUpdateMeta(update)

	fields := logging.Fields{
		"event":       "telegram_update",
		"update_type": meta.updateType,
	}
	if meta.text != "" {
		fields["text"] = meta.text
	}
	if meta.userID != 0 {
		fields["user_id"] = meta.userID
	}
	if meta.chatID != 0 {
		fields["chat_id"] = meta.chatID
	}

	c.logger.WithFields(fields).Info("telegram update received")
}

func firstMessage(update *models.Update) *models.Message {
	if update.Message != nil {
		return update.Message
	}
	return update.ChannelPost
}

// captureMedia echoes the file id of a media message back to the sender and
// persists it to the captured-media slot. Reports whether the message carried
// capturable media.
func (c *Client) captureMedia(ctx context.Context, b *bot.Bot, msg *models.Message) bool {
	fileID, contentType := extractFileID(msg)
	if fileID == "" {
		return false
	}

	if c.vault != nil {
		if err := c.vault.Save(ctx, store.CapturedMedia{
			FileID:      fileID,
			ContentType: contentType,
			ChatID:      msg.Chat.ID,
		}); err != nil {
			c.logger.WithField("event", "media_capture_failed").WithError(err).Warn("could not persist captured media")
		}
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   fmt.Sprintf("content_type: %s\nfile_id:\n%s", contentType, fileID),
	}); err != nil {
		c.logger.WithField("event", "media_echo_failed").WithError(err).Warn("could not echo captured media")
	}

	return true
}

func extractFileID(msg *models.Message) (fileID, contentType string) {
	switch {
	case len(msg.Photo) > 0:
		return msg.Photo[len(msg.Photo)-1].FileID, "photo"
	case msg.Document != nil:
		return msg.Document.FileID, "document"
	case msg.Video != nil:
		return msg.Video.FileID, "video"
	case msg.Audio != nil:
		return msg.Audio.FileID, "audio"
	case msg.Voice != nil:
		return msg.Voice.FileID, "voice"
	case msg.VideoNote != nil:
		return msg.VideoNote.FileID, "video_note"
	case msg.Sticker != nil:
		return msg.Sticker.FileID, "sticker"
	case msg.Animation != nil:
		return msg.Animation.FileID, "animation"
	default:
		return "", ""
	}
}

func answerCallback(ctx context.Context, b *bot.Bot, callbackID string) {
	if b == nil || callbackID == "" {
		return
	}
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
}

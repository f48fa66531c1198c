package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_funnel_bot/internal/catalog"
	"tg_funnel_bot/internal/logging"
)

// botAPI is the subset of *bot.Bot the gateway calls, narrow enough to fake in
// tests without a live bot.
type botAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	SendVideoNote(ctx context.Context, params *bot.SendVideoNoteParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendMediaGroup(ctx context.Context, params *bot.SendMediaGroupParams) ([]*models.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
	ApproveChatJoinRequest(ctx context.Context, params *bot.ApproveChatJoinRequestParams) (bool, error)
}

// SentHook observes every successful outbound delivery; the scheduler uses it
// to restart quiescence windows.
type SentHook func(userID int64)

// Client delivers catalog content through the Telegram Bot API.
type Client struct {
	api    botAPI
	logger *logrus.Entry
	onSent SentHook
}

// Option customizes a Client.
type Option func(*Client)

// WithSentHook installs the hook invoked after each successful delivery.
func WithSentHook(hook SentHook) Option {
	return func(c *Client) {
		c.onSent = hook
	}
}

// NewClient wraps a bot API for content delivery.
func NewClient(api botAPI, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("bot api is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{api: api, logger: logger}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// SendText delivers a plain text message with optional affordances.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, kb catalog.Keyboard) Delivery {
	msg, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: renderKeyboard(kb),
	})

	return c.finish(chatID, msg, err, "text")
}

// SendLessonLink delivers a bare URL with the link preview left on.
func (c *Client) SendLessonLink(ctx context.Context, chatID int64, url string) Delivery {
	msg, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   url,
	})

	return c.finish(chatID, msg, err, "lesson_link")
}

// SendBlock delivers a content block: banner photo with the text as caption
// when a banner is set, otherwise plain text. A banner rejected by the
// transport is retried once through the direct-link rewrite, then the block
// degrades to text-only.
func (c *Client) SendBlock(ctx context.Context, chatID int64, block catalog.Block) Delivery {
	if block.Banner == "" {
		return c.SendText(ctx, chatID, block.Text, block.Keyboard)
	}

	caption := catalog.TruncateCaption(block.Text, catalog.CaptionLimit)
	markup := renderKeyboard(block.Keyboard)

	msg, err := c.sendBanner(ctx, chatID, block.Banner, caption, markup)
	result := classifyError(err)
	if result == ResultPermanentlyUnreachable {
		return c.finish(chatID, msg, err, "block")
	}
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "banner_fallback",
			"chat_id": chatID,
			"result":  result.String(),
		}).WithError(err).Warn("banner send failed, degrading to text")
		return c.SendText(ctx, chatID, block.Text, block.Keyboard)
	}

	return c.finish(chatID, msg, nil, "block")
}

func (c *Client) sendBanner(ctx context.Context, chatID int64, banner, caption string, markup models.ReplyMarkup) (*models.Message, error) {
	msg, err := c.api.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:      chatID,
		Photo:       &models.InputFileString{Data: banner},
		Caption:     caption,
		ReplyMarkup: markup,
	})
	if classifyError(err) != ResultInvalidReference {
		return msg, err
	}

	rewritten, ok := directImageURL(banner)
	if !ok {
		return msg, err
	}

	return c.api.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:      chatID,
		Photo:       &models.InputFileString{Data: rewritten},
		Caption:     caption,
		ReplyMarkup: markup,
	})
}

// EditAffordances replaces (or with a nil keyboard, strips) the affordances of
// a previously sent message. Best effort: the message may have been deleted.
func (c *Client) EditAffordances(ctx context.Context, chatID int64, messageID int, kb catalog.Keyboard) error {
	if messageID == 0 {
		return nil
	}

	_, err := c.api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: renderKeyboard(kb),
	})
	if err != nil {
		return fmt.Errorf("edit reply markup: %w", err)
	}

	return nil
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if _, err := c.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	return nil
}

// GetChannelMembership queries the user's live status in a channel. A query
// error reads as not-a-member: the gate re-prompts instead of failing.
func (c *Client) GetChannelMembership(ctx context.Context, channelID, userID int64) (Membership, error) {
	member, err := c.api.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: channelID,
		UserID: userID,
	})
	if err != nil {
		return MembershipNone, fmt.Errorf("get chat member: %w", err)
	}
	if member == nil {
		return MembershipNone, nil
	}

	switch member.Type {
	case models.ChatMemberTypeOwner:
		return MembershipOwner, nil
	case models.ChatMemberTypeAdministrator:
		return MembershipAdmin, nil
	case models.ChatMemberTypeMember:
		return MembershipMember, nil
	default:
		return MembershipNone, nil
	}
}

// ApproveJoinRequest approves a pending channel join request.
func (c *Client) ApproveJoinRequest(ctx context.Context, channelID, userID int64) error {
	if _, err := c.api.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: channelID,
		UserID: userID,
	}); err != nil {
		return fmt.Errorf("approve join request: %w", err)
	}

	return nil
}

// finish classifies the raw transport outcome, fires the sent hook, and logs
// anything that did not deliver.
func (c *Client) finish(chatID int64, msg *models.Message, err error, kind string) Delivery {
	delivery := Delivery{Result: classifyError(err)}
	if msg != nil {
		delivery.MessageID = msg.ID
	}

	if delivery.OK() {
		if c.onSent != nil {
			c.onSent(chatID)
		}
		return delivery
	}

	c.logger.WithFields(logging.Fields{
		"event":   "delivery_failed",
		"chat_id": chatID,
		"kind":    kind,
		"result":  delivery.Result.String(),
	}).WithError(err).Warn("message not delivered")

	return delivery
}

// renderKeyboard converts catalog affordances into transport markup. A nil or
// empty keyboard renders as nil markup, which on edit strips the buttons.
func renderKeyboard(kb catalog.Keyboard) models.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         btn.Label,
				URL:          btn.URL,
				CallbackData: btn.Callback,
			})
		}
		rows = append(rows, buttons)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_funnel_bot/internal/catalog"
	"tg_funnel_bot/internal/config"
	"tg_funnel_bot/internal/gateway"
	"tg_funnel_bot/internal/logging"
	"tg_funnel_bot/internal/store"
)

type botRunner interface {
	Start(ctx context.Context)
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
	GetMe(ctx context.Context) (*models.User, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
		"chat_join_request",
		"channel_post",
	}

	createBot = func(token string, options ...bot.Option) (*bot.Bot, error) {
		return bot.New(token, options...)
	}
)

// Funnel is the engine surface the dispatcher routes events to.
type Funnel interface {
	OnEntry(ctx context.Context, userID int64) error
	OnAdvanceRequest(ctx context.Context, userID int64, target, messageID int) error
	OnGateCheck(ctx context.Context, userID int64, messageID int) error
	OnJoinRequest(ctx context.Context, chatID, userID int64) error
}

// Stats reports the raw tracked-user count for the admin surface.
type Stats interface {
	CountUsers(ctx context.Context) (int64, error)
}

// MediaRecorder persists operator-captured file ids.
type MediaRecorder interface {
	Save(ctx context.Context, item store.CapturedMedia) error
}

// Diagnostics is the slice of the gateway the admin commands exercise.
type Diagnostics interface {
	SendText(ctx context.Context, chatID int64, text string, kb catalog.Keyboard) gateway.Delivery
	SendMedia(ctx context.Context, chatID int64, ref catalog.MediaRef, caption string, kb catalog.Keyboard) gateway.Delivery
}

// Client wraps the Telegram bot instance, update routing, and dependencies.
type Client struct {
	cfg    config.Config
	bot    botRunner
	raw    *bot.Bot
	logger *logrus.Entry

	funnel  Funnel
	stats   Stats
	vault   MediaRecorder
	diag    Diagnostics
	content *catalog.Catalog

	deepLink string
}

// NewClient initializes the Telegram bot with long polling and the default
// update handler. Routing for commands and callbacks is installed by Attach
// once the funnel engine exists (the engine's gateway wraps the same bot).
func NewClient(cfg config.Config, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{
		cfg:    cfg,
		logger: logger,
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleDefault),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	client.raw = tgBot

	return client, nil
}

// Bot exposes the underlying bot for the gateway layer.
func (c *Client) Bot() *bot.Bot {
	return c.raw
}

// Attach installs the funnel engine and operator dependencies, then registers
// the command and callback routes.
func (c *Client) Attach(funnel Funnel, stats Stats, vault MediaRecorder, diag Diagnostics, content *catalog.Catalog) error {
	if funnel == nil {
		return errors.New("funnel engine is required")
	}
	if c.bot == nil {
		return errors.New("telegram client is not initialized")
	}

	c.funnel = funnel
	c.stats = stats
	c.vault = vault
	c.diag = diag
	c.content = content

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, c.handleStats)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/diag", bot.MatchTypeExact, c.handleDiag)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/test_l3", bot.MatchTypeExact, c.handleFollowupTest)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, catalog.CallbackOpenPrefix, bot.MatchTypePrefix, c.handleOpen)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, catalog.CallbackGateCheck, bot.MatchTypeExact, c.handleGateCheck)

	return nil
}

// Start resolves the bot identity and begins receiving updates via long
// polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if me, err := c.bot.GetMe(ctx); err == nil && me != nil {
		c.deepLink = fmt.Sprintf("https://t.me/%s?start=from_channel", me.Username)
		c.logger.WithFields(logging.Fields{
			"event":     "telegram_identity",
			"username":  me.Username,
			"deep_link": c.deepLink,
		}).Info("resolved bot identity")
	} else if err != nil {
		c.logger.WithField("event", "telegram_getme_failed").WithError(err).Warn("could not resolve bot identity")
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// DeepLink returns the t.me entry link once the identity is resolved.
func (c *Client) DeepLink() string {
	return c.deepLink
}

func (c *Client) isAdmin(userID int64) bool {
	return c.cfg.AdminID == 0 || c.cfg.AdminID == userID
}

type updateMeta struct {
	userID     int64
	chatID     int64
	text       string
	updateType string
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     chatID(&update.Message.Chat),
			text:       strings.TrimSpace(update.Message.Text),
			updateType: "message",
		}
	case update.CallbackQuery != nil:
		return updateMeta{
			userID:     userID(&update.CallbackQuery.From),
			chatID:     messageChatID(update.CallbackQuery.Message),
			text:       strings.TrimSpace(update.CallbackQuery.Data),
			updateType: "callback_query",
		}
	case update.ChatJoinRequest != nil:
		return updateMeta{
			userID:     userID(&update.ChatJoinRequest.From),
			chatID:     chatID(&update.ChatJoinRequest.Chat),
			updateType: "chat_join_request",
		}
	case update.ChannelPost != nil:
		return updateMeta{
			chatID:     chatID(&update.ChannelPost.Chat),
			updateType: "channel_post",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func chatID(chat *models.Chat) int64 {
	if chat == nil {
		return 0
	}

	return chat.ID
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return chatID(&msg.Message.Chat)
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return chatID(&msg.InaccessibleMessage.Chat)
	default:
		return 0
	}
}

func messageID(msg models.MaybeInaccessibleMessage) int {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return msg.Message.ID
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return msg.InaccessibleMessage.MessageID
	default:
		return 0
	}
}

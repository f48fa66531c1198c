package gateway

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_funnel_bot/internal/catalog"
	"tg_funnel_bot/internal/logging"
)

// maxInlineUploadBytes is the Bot API limit for inline media uploads. Larger
// local files go straight to the document path.
const maxInlineUploadBytes = 50 << 20

// SendMedia resolves one media reference and walks the fallback chain:
// local file -> inline send -> document retry on size, remote id -> heuristic
// video-note -> standard send, invalid reference -> text-only rendering of the
// caption. The returned Delivery is always a defined terminal state.
func (c *Client) SendMedia(ctx context.Context, chatID int64, ref catalog.MediaRef, caption string, kb catalog.Keyboard) Delivery {
	caption = catalog.TruncateCaption(caption, catalog.CaptionLimit)

	switch classifyRef(ref.Ref) {
	case refLocalFile:
		return c.sendLocalFile(ctx, chatID, ref, caption, kb)
	case refURL:
		return c.sendRemote(ctx, chatID, ref, caption, kb, false)
	case refRemoteID:
		videoNote := ref.Kind == catalog.KindVideoNote ||
			(ref.Kind == catalog.KindAuto && looksLikeVideoNote(ref.Ref))
		return c.sendRemote(ctx, chatID, ref, caption, kb, videoNote)
	default:
		c.logger.WithFields(logging.Fields{
			"event":   "media_ref_invalid",
			"chat_id": chatID,
			"ref":     ref.Ref,
		}).Warn("media reference does not resolve")
		return c.textFallback(ctx, chatID, caption, kb, ResultInvalidReference)
	}
}

func (c *Client) sendLocalFile(ctx context.Context, chatID int64, ref catalog.MediaRef, caption string, kb catalog.Keyboard) Delivery {
	info, err := os.Stat(ref.Ref)
	if err != nil {
		return c.textFallback(ctx, chatID, caption, kb, ResultInvalidReference)
	}

	if info.Size() <= maxInlineUploadBytes {
		delivery := c.attemptLocalInline(ctx, chatID, ref, caption, kb)
		if delivery.Result != ResultPayloadTooLarge {
			return delivery
		}
		c.logger.WithFields(logging.Fields{
			"event":   "media_size_fallback",
			"chat_id": chatID,
			"path":    ref.Ref,
		}).Warn("inline send rejected by size, retrying as document")
	}

	return c.attemptDocument(ctx, chatID, ref.Ref, caption)
}

func (c *Client) attemptLocalInline(ctx context.Context, chatID int64, ref catalog.MediaRef, caption string, kb catalog.Keyboard) Delivery {
	file, err := os.Open(ref.Ref)
	if err != nil {
		return c.textFallback(ctx, chatID, caption, kb, ResultInvalidReference)
	}
	defer file.Close()

	upload := &models.InputFileUpload{Filename: filepath.Base(ref.Ref), Data: file}
	markup := renderKeyboard(kb)

	var msg *models.Message
	if ref.Kind == catalog.KindPhoto {
		msg, err = c.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       upload,
			Caption:     caption,
			ReplyMarkup: markup,
		})
	} else {
		msg, err = c.api.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:      chatID,
			Video:       upload,
			Caption:     caption,
			Width:       ref.Width,
			Height:      ref.Height,
			ReplyMarkup: markup,
		})
	}

	return c.finish(chatID, msg, err, "media_inline")
}

func (c *Client) attemptDocument(ctx context.Context, chatID int64, path, caption string) Delivery {
	file, err := os.Open(path)
	if err != nil {
		return Delivery{Result: ResultInvalidReference}
	}
	defer file.Close()

	msg, sendErr := c.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filepath.Base(path), Data: file},
		Caption:  caption,
	})

	return c.finish(chatID, msg, sendErr, "media_document")
}

func (c *Client) sendRemote(ctx context.Context, chatID int64, ref catalog.MediaRef, caption string, kb catalog.Keyboard, videoNote bool) Delivery {
	markup := renderKeyboard(kb)

	if videoNote {
		msg, err := c.api.SendVideoNote(ctx, &bot.SendVideoNoteParams{
			ChatID:    chatID,
			VideoNote: &models.InputFileString{Data: ref.Ref},
		})
		delivery := c.finish(chatID, msg, err, "video_note")
		if delivery.OK() || delivery.Unreachable() {
			return delivery
		}
		// Heuristic missed; fall through to the standard send.
	}

	var (
		msg *models.Message
		err error
	)
	if ref.Kind == catalog.KindPhoto {
		msg, err = c.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileString{Data: ref.Ref},
			Caption:     caption,
			ReplyMarkup: markup,
		})
	} else {
		msg, err = c.api.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:      chatID,
			Video:       &models.InputFileString{Data: ref.Ref},
			Caption:     caption,
			Width:       ref.Width,
			Height:      ref.Height,
			ReplyMarkup: markup,
		})
	}

	delivery := c.finish(chatID, msg, err, "media_remote")
	if delivery.Result == ResultInvalidReference {
		return c.textFallback(ctx, chatID, caption, kb, ResultInvalidReference)
	}

	return delivery
}

// textFallback renders the content item text-only. When there is no caption to
// render, the terminal classification is returned as-is without a send.
func (c *Client) textFallback(ctx context.Context, chatID int64, caption string, kb catalog.Keyboard, terminal Result) Delivery {
	if caption == "" {
		return Delivery{Result: terminal}
	}

	delivery := c.SendText(ctx, chatID, caption, kb)
	if !delivery.OK() {
		return delivery
	}

	// Delivered, but degraded: keep the terminal classification visible to the
	// caller while reporting the message that did go out.
	return Delivery{Result: terminal, MessageID: delivery.MessageID}
}

// SendPost delivers one promotional rotation item through whichever media
// shape it declares, with the caption truncated to the transport limit.
func (c *Client) SendPost(ctx context.Context, chatID int64, post catalog.Post, kb catalog.Keyboard) Delivery {
	caption := catalog.TruncateCaption(post.Text, catalog.CaptionLimit)

	switch {
	case post.Video != nil:
		return c.SendMedia(ctx, chatID, *post.Video, caption, kb)

	case post.Banner != "":
		return c.SendBlock(ctx, chatID, catalog.Block{
			Banner:   post.Banner,
			Text:     post.Text,
			Keyboard: kb,
		})

	case len(post.Photos) == 1:
		return c.SendMedia(ctx, chatID, catalog.MediaRef{Kind: catalog.KindPhoto, Ref: post.Photos[0]}, caption, kb)

	case len(post.Photos) > 1:
		return c.sendGallery(ctx, chatID, post.Photos, caption)

	default:
		return c.SendText(ctx, chatID, post.Text, kb)
	}
}

// sendGallery sends a photo album with the caption on the first item. The
// transport does not allow affordances on media groups.
func (c *Client) sendGallery(ctx context.Context, chatID int64, photos []string, caption string) Delivery {
	media := make([]models.InputMedia, 0, len(photos))
	for i, photo := range photos {
		item := &models.InputMediaPhoto{Media: photo}
		if i == 0 {
			item.Caption = caption
		}
		media = append(media, item)
	}

	msgs, err := c.api.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
		ChatID: chatID,
		Media:  media,
	})

	var first *models.Message
	if len(msgs) > 0 {
		first = msgs[0]
	}

	return c.finish(chatID, first, err, "media_group")
}

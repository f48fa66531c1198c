// Package catalog holds the funnel's static content: lesson blocks, the gate
// prompt, the promotional post pool, and the affordances attached to them.
// It knows nothing about the transport; the gateway renders its types.
package catalog

import (
	"fmt"

	"tg_funnel_bot/internal/config"
)

// LessonCount is the number of scripted lesson stages.
const LessonCount = 3

// Button is a single user-actionable affordance. Exactly one of URL or
// Callback is set.
type Button struct {
	Label    string
	URL      string
	Callback string
}

// Keyboard is rows of affordances rendered under a message.
type Keyboard [][]Button

// MediaKind declares how a media reference should be sent.
type MediaKind int

const (
	// KindAuto defers to the gateway's reference classification.
	KindAuto MediaKind = iota
	KindPhoto
	KindVideo
	KindVideoNote
)

// MediaRef points at one physical media payload: a local file path, a remote
// file id, or a direct image URL.
type MediaRef struct {
	Kind   MediaKind
	Ref    string
	Width  int
	Height int
}

// Block is one deliverable content item: text, an optional banner image, and
// an optional keyboard.
type Block struct {
	Banner   string
	Text     string
	Keyboard Keyboard
}

// Post is one promotional rotation item. Photos and Video are optional; more
// than one photo is delivered as a media group.
type Post struct {
	Text   string
	Banner string
	Photos []string
	Video  *MediaRef
}

// Callback data understood by the dispatcher.
const (
	CallbackOpenPrefix = "open:"
	CallbackGateCheck  = "check_diary"
)

// OpenCallback returns the callback payload for the open-lesson-n affordance.
func OpenCallback(n int) string {
	return fmt.Sprintf("%s%d", CallbackOpenPrefix, n)
}

// Catalog binds the static content to the deployment's URLs and banners.
type Catalog struct {
	cfg config.Config
}

// New constructs a Catalog for the given configuration.
func New(cfg config.Config) *Catalog {
	return &Catalog{cfg: cfg}
}

// LessonURL returns the external page for lesson n (1-based); out-of-range
// lessons fall back to the landing page.
func (c *Catalog) LessonURL(n int) string {
	if n < 1 || n > LessonCount {
		return c.cfg.SiteURL
	}
	return c.cfg.LessonURLs[n-1]
}

// WelcomeBlock is the first message of the funnel, sent without affordances.
func (c *Catalog) WelcomeBlock() Block {
	return Block{Banner: c.cfg.Banners.Welcome, Text: welcomeText}
}

// IntroBlock describes lesson 1 and carries the get-access affordance.
func (c *Catalog) IntroBlock() Block {
	return Block{
		Banner:   c.cfg.Banners.Intro,
		Text:     lessonIntroText,
		Keyboard: c.AccessKeyboard(),
	}
}

// AfterLessonBlock is the bridge content sent after lesson n was opened,
// teasing lesson n+1. Lesson 2's bridge is followed by the gate prompt.
func (c *Catalog) AfterLessonBlock(n int) (Block, bool) {
	switch n {
	case 1:
		return Block{Banner: c.cfg.Banners.AfterL1, Text: afterLesson1Text}, true
	case 2:
		return Block{Banner: c.cfg.Banners.AfterL2, Text: afterLesson2Text}, true
	default:
		return Block{}, false
	}
}

// GateBlock is the subscribe prompt shown before lesson 3.
func (c *Catalog) GateBlock() Block {
	return Block{
		Banner:   c.cfg.Banners.Gate,
		Text:     gateText,
		Keyboard: c.GateKeyboard(),
	}
}

// PromoCourseBlock pitches the paid mini course.
func (c *Catalog) PromoCourseBlock() Block {
	return Block{
		Banner:   c.cfg.Banners.PromoCourse,
		Text:     promoCourseText,
		Keyboard: c.BuyKeyboard(),
	}
}

// PromoMentorBlock pitches the mentorship program with the application form.
func (c *Catalog) PromoMentorBlock() Block {
	block := Block{Banner: c.cfg.Banners.PromoMentor, Text: promoMentorText}
	if c.cfg.FormURL != "" {
		block.Keyboard = Keyboard{{{Label: "📝 Apply now", URL: c.cfg.FormURL}}}
	}
	return block
}

// AccessKeyboard carries the single get-access affordance.
func (c *Catalog) AccessKeyboard() Keyboard {
	return Keyboard{{{Label: "🔑 GET ACCESS", Callback: OpenCallback(1)}}}
}

// OpenKeyboard carries the open-lesson-n affordance.
func (c *Catalog) OpenKeyboard(n int) Keyboard {
	return Keyboard{{{Label: fmt.Sprintf("OPEN LESSON %d", n), Callback: OpenCallback(n)}}}
}

// GateKeyboard pairs the subscribe link with the check-again affordance.
func (c *Catalog) GateKeyboard() Keyboard {
	subscribeURL := c.cfg.DiaryJoinURL
	if subscribeURL == "" {
		subscribeURL = c.cfg.SiteURL
	}
	return Keyboard{
		{{Label: "📓 Subscribe to the diary", URL: subscribeURL}},
		{{Label: "✅ Request sent — CHECK", Callback: CallbackGateCheck}},
	}
}

// BuyKeyboard links to the course landing page.
func (c *Catalog) BuyKeyboard() Keyboard {
	return Keyboard{{{Label: "🔥 Get the mini course", URL: c.cfg.SiteURL}}}
}

// RotationKeyboard returns the call-to-action for promo posts. Users who have
// not unlocked the gated stage are pointed back at the next lesson instead of
// the paid offer.
func (c *Catalog) RotationKeyboard(stage int) Keyboard {
	if stage < LessonCount {
		next := stage + 1
		if next < 1 {
			next = 1
		}
		return c.OpenKeyboard(next)
	}
	return Keyboard{{{Label: "🔥 P2P mini course", URL: c.cfg.SiteURL}}}
}

// NudgeText returns the i-th get-access nudge, sticking with the last one when
// the schedule is longer than the text pool.
func (c *Catalog) NudgeText(i int) string {
	if i < 0 {
		i = 0
	}
	if i >= len(accessNudgeTexts) {
		i = len(accessNudgeTexts) - 1
	}
	return accessNudgeTexts[i]
}

// ReminderText returns the open-lesson-n reminder body.
func (c *Catalog) ReminderText(n int) (string, bool) {
	text, ok := lessonReminderTexts[n]
	return text, ok
}

// FollowupVideo returns the lesson-3 follow-up media reference, when configured.
func (c *Catalog) FollowupVideo() (MediaRef, string, bool) {
	if c.cfg.FollowupVideoRef == "" {
		return MediaRef{}, "", false
	}
	return MediaRef{Kind: KindAuto, Ref: c.cfg.FollowupVideoRef}, c.cfg.FollowupCaption, true
}

// Posts returns the promotional rotation pool in send order.
func (c *Catalog) Posts() []Post {
	return rotationPosts
}

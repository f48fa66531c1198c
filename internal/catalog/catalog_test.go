package catalog

import (
	"strings"
	"testing"

	"tg_funnel_bot/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		SiteURL:      "https://example.com/course",
		FormURL:      "https://forms.example.com/apply",
		DiaryJoinURL: "https://t.me/+diary",
		LessonURLs: [3]string{
			"https://example.com/lesson1",
			"https://example.com/lesson2",
			"https://example.com/lesson3",
		},
	}
}

func TestLessonURLBounds(t *testing.T) {
	c := New(testConfig())

	if got := c.LessonURL(2); got != "https://example.com/lesson2" {
		t.Fatalf("expected lesson 2 url, got %s", got)
	}
	if got := c.LessonURL(0); got != "https://example.com/course" {
		t.Fatalf("expected site url for lesson 0, got %s", got)
	}
	if got := c.LessonURL(4); got != "https://example.com/course" {
		t.Fatalf("expected site url for lesson 4, got %s", got)
	}
}

func TestOpenCallbackRoundTrip(t *testing.T) {
	for n := 1; n <= LessonCount; n++ {
		data := OpenCallback(n)
		if !strings.HasPrefix(data, CallbackOpenPrefix) {
			t.Fatalf("expected open callback prefix, got %s", data)
		}
	}
	if OpenCallback(2) != "open:2" {
		t.Fatalf("unexpected open callback payload: %s", OpenCallback(2))
	}
}

func TestAfterLessonBlockCoversBridgeLessons(t *testing.T) {
	c := New(testConfig())

	for _, n := range []int{1, 2} {
		block, ok := c.AfterLessonBlock(n)
		if !ok {
			t.Fatalf("expected bridge block after lesson %d", n)
		}
		if block.Text == "" {
			t.Fatalf("expected non-empty bridge text for lesson %d", n)
		}
	}

	if _, ok := c.AfterLessonBlock(3); ok {
		t.Fatalf("expected no bridge block after the final lesson")
	}
}

func TestGateKeyboardUsesJoinURL(t *testing.T) {
	c := New(testConfig())

	kb := c.GateKeyboard()
	if len(kb) != 2 {
		t.Fatalf("expected 2 keyboard rows, got %d", len(kb))
	}
	if kb[0][0].URL != "https://t.me/+diary" {
		t.Fatalf("expected subscribe row to use join url, got %s", kb[0][0].URL)
	}
	if kb[1][0].Callback != CallbackGateCheck {
		t.Fatalf("expected check row callback %s, got %s", CallbackGateCheck, kb[1][0].Callback)
	}

	cfg := testConfig()
	cfg.DiaryJoinURL = ""
	kb = New(cfg).GateKeyboard()
	if kb[0][0].URL != cfg.SiteURL {
		t.Fatalf("expected subscribe row to fall back to site url, got %s", kb[0][0].URL)
	}
}

func TestRotationKeyboardFollowsStage(t *testing.T) {
	c := New(testConfig())

	for stage := 0; stage < LessonCount; stage++ {
		kb := c.RotationKeyboard(stage)
		want := OpenCallback(stage + 1)
		if kb[0][0].Callback != want {
			t.Fatalf("stage %d: expected callback %s, got %s", stage, want, kb[0][0].Callback)
		}
	}

	kb := c.RotationKeyboard(LessonCount)
	if kb[0][0].URL != "https://example.com/course" {
		t.Fatalf("expected buy affordance past the last lesson, got %+v", kb[0][0])
	}
}

func TestNudgeTextClampsIndex(t *testing.T) {
	c := New(testConfig())

	if c.NudgeText(-1) != c.NudgeText(0) {
		t.Fatalf("expected negative index to clamp to first nudge")
	}
	if c.NudgeText(99) != c.NudgeText(len(accessNudgeTexts)-1) {
		t.Fatalf("expected large index to clamp to last nudge")
	}
}

func TestReminderTextCoversAllLessons(t *testing.T) {
	c := New(testConfig())

	for n := 1; n <= LessonCount; n++ {
		if _, ok := c.ReminderText(n); !ok {
			t.Fatalf("expected reminder text for lesson %d", n)
		}
	}
	if _, ok := c.ReminderText(4); ok {
		t.Fatalf("expected no reminder text past the last lesson")
	}
}

func TestFollowupVideoRequiresConfiguredRef(t *testing.T) {
	cfg := testConfig()
	c := New(cfg)

	if _, _, ok := c.FollowupVideo(); ok {
		t.Fatalf("expected no follow-up video without a configured ref")
	}

	cfg.FollowupVideoRef = "BAACAgIAAxkBAAI"
	cfg.FollowupCaption = "bonus"
	c = New(cfg)

	ref, caption, ok := c.FollowupVideo()
	if !ok {
		t.Fatalf("expected follow-up video when configured")
	}
	if ref.Ref != cfg.FollowupVideoRef || ref.Kind != KindAuto {
		t.Fatalf("unexpected follow-up ref: %+v", ref)
	}
	if caption != "bonus" {
		t.Fatalf("expected caption %q, got %q", "bonus", caption)
	}
}

func TestPostsPoolIsNonEmptyAndCaptionSafe(t *testing.T) {
	c := New(testConfig())

	posts := c.Posts()
	if len(posts) == 0 {
		t.Fatalf("expected a non-empty rotation pool")
	}
	for i, post := range posts {
		if strings.TrimSpace(post.Text) == "" && post.Banner == "" && len(post.Photos) == 0 && post.Video == nil {
			t.Fatalf("post %d has no content", i)
		}
	}
}

func TestPromoMentorBlockOmitsFormWhenUnset(t *testing.T) {
	cfg := testConfig()
	cfg.FormURL = ""

	block := New(cfg).PromoMentorBlock()
	if block.Keyboard != nil {
		t.Fatalf("expected no keyboard without a form url, got %+v", block.Keyboard)
	}
}

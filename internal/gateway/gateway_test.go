package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus/hooks/test"

	"tg_funnel_bot/internal/catalog"
)

func newTestClient(t *testing.T, api *fakeBotAPI, opts ...Option) *Client {
	t.Helper()

	logger, _ := test.NewNullLogger()
	client, err := NewClient(api, logger.WithField("test", t.Name()), opts...)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClientRequiresAPI(t *testing.T) {
	if _, err := NewClient(nil, nil); err == nil {
		t.Fatalf("expected error for nil bot api")
	}
}

func TestSendTextDeliversAndFiresHook(t *testing.T) {
	api := &fakeBotAPI{}
	var notified []int64
	client := newTestClient(t, api, WithSentHook(func(userID int64) {
		notified = append(notified, userID)
	}))

	d := client.SendText(context.Background(), 42, "hello", nil)
	if !d.OK() {
		t.Fatalf("expected delivered, got %s", d.Result)
	}
	if d.MessageID == 0 {
		t.Fatalf("expected message id to be set")
	}
	if len(notified) != 1 || notified[0] != 42 {
		t.Fatalf("expected sent hook for chat 42, got %v", notified)
	}
	if len(api.messages) != 1 || api.messages[0].Text != "hello" {
		t.Fatalf("expected one text send, got %+v", api.messages)
	}
}

func TestSendTextForbiddenSkipsHook(t *testing.T) {
	api := &fakeBotAPI{messageErr: fmt.Errorf("%w: bot was blocked by the user", bot.ErrorForbidden)}
	hookFired := false
	client := newTestClient(t, api, WithSentHook(func(int64) { hookFired = true }))

	d := client.SendText(context.Background(), 42, "hello", nil)
	if !d.Unreachable() {
		t.Fatalf("expected unreachable, got %s", d.Result)
	}
	if hookFired {
		t.Fatalf("expected no sent hook on failure")
	}
}

func TestSendTextRendersKeyboard(t *testing.T) {
	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	kb := catalog.Keyboard{{{Label: "open", Callback: "open:1"}}}
	client.SendText(context.Background(), 42, "hello", kb)

	markup, ok := api.messages[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard markup, got %T", api.messages[0].ReplyMarkup)
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.Text != "open" || btn.CallbackData != "open:1" {
		t.Fatalf("unexpected rendered button: %+v", btn)
	}
}

func TestSendBlockWithoutBannerSendsText(t *testing.T) {
	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	d := client.SendBlock(context.Background(), 42, catalog.Block{Text: "plain"})
	if !d.OK() {
		t.Fatalf("expected delivered, got %s", d.Result)
	}
	if len(api.photos) != 0 || len(api.messages) != 1 {
		t.Fatalf("expected a single text send, got photos=%d messages=%d", len(api.photos), len(api.messages))
	}
}

func TestSendBlockBannerDegradesToText(t *testing.T) {
	api := &fakeBotAPI{photoErrs: []error{
		fmt.Errorf("%w: failed to get HTTP URL content", bot.ErrorBadRequest),
	}}
	client := newTestClient(t, api)

	block := catalog.Block{Banner: "https://example.com/banner.jpg", Text: "caption text"}
	d := client.SendBlock(context.Background(), 42, block)
	if !d.OK() {
		t.Fatalf("expected degraded text delivery, got %s", d.Result)
	}
	if len(api.photos) != 1 {
		t.Fatalf("expected one banner attempt, got %d", len(api.photos))
	}
	if len(api.messages) != 1 || api.messages[0].Text != "caption text" {
		t.Fatalf("expected text degradation, got %+v", api.messages)
	}
}

func TestSendBlockBannerRetriesThroughDirectLink(t *testing.T) {
	api := &fakeBotAPI{photoErrs: []error{
		fmt.Errorf("%w: wrong type of the web page content", bot.ErrorBadRequest),
		nil,
	}}
	client := newTestClient(t, api)

	block := catalog.Block{Banner: "https://imgur.com/abc123", Text: "caption"}
	d := client.SendBlock(context.Background(), 42, block)
	if !d.OK() {
		t.Fatalf("expected delivery through rewritten link, got %s", d.Result)
	}
	if len(api.photos) != 2 {
		t.Fatalf("expected two banner attempts, got %d", len(api.photos))
	}

	second, ok := api.photos[1].Photo.(*models.InputFileString)
	if !ok || second.Data != "https://i.imgur.com/abc123.jpg" {
		t.Fatalf("expected rewritten direct link on retry, got %+v", api.photos[1].Photo)
	}
	if len(api.messages) != 0 {
		t.Fatalf("expected no text degradation after successful retry")
	}
}

func TestSendBlockForbiddenDoesNotDegrade(t *testing.T) {
	api := &fakeBotAPI{photoErrs: []error{
		fmt.Errorf("%w: bot was blocked by the user", bot.ErrorForbidden),
	}}
	client := newTestClient(t, api)

	block := catalog.Block{Banner: "https://example.com/banner.jpg", Text: "caption"}
	d := client.SendBlock(context.Background(), 42, block)
	if !d.Unreachable() {
		t.Fatalf("expected unreachable, got %s", d.Result)
	}
	if len(api.messages) != 0 {
		t.Fatalf("expected no text degradation for a blocked user")
	}
}

func TestEditAffordancesSkipsZeroMessageID(t *testing.T) {
	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	if err := client.EditAffordances(context.Background(), 42, 0, nil); err != nil {
		t.Fatalf("expected zero message id to be a no-op, got %v", err)
	}
	if api.editCalls != 0 {
		t.Fatalf("expected no edit call, got %d", api.editCalls)
	}

	if err := client.EditAffordances(context.Background(), 42, 7, nil); err != nil {
		t.Fatalf("expected edit to succeed, got %v", err)
	}
	if api.editCalls != 1 {
		t.Fatalf("expected one edit call, got %d", api.editCalls)
	}
}

func TestGetChannelMembershipMapping(t *testing.T) {
	tests := []struct {
		memberType models.ChatMemberType
		expected   Membership
		joined     bool
	}{
		{models.ChatMemberTypeOwner, MembershipOwner, true},
		{models.ChatMemberTypeAdministrator, MembershipAdmin, true},
		{models.ChatMemberTypeMember, MembershipMember, true},
		{models.ChatMemberTypeLeft, MembershipNone, false},
	}

	for _, tt := range tests {
		api := &fakeBotAPI{memberType: tt.memberType}
		client := newTestClient(t, api)

		membership, err := client.GetChannelMembership(context.Background(), -100, 42)
		if err != nil {
			t.Fatalf("GetChannelMembership returned error: %v", err)
		}
		if membership != tt.expected || membership.Joined() != tt.joined {
			t.Fatalf("member type %v: got %v joined=%v", tt.memberType, membership, membership.Joined())
		}
	}
}

func TestGetChannelMembershipPropagatesQueryError(t *testing.T) {
	api := &fakeBotAPI{memberErr: errors.New("chat not found")}
	client := newTestClient(t, api)

	membership, err := client.GetChannelMembership(context.Background(), -100, 42)
	if err == nil {
		t.Fatalf("expected query error")
	}
	if membership != MembershipNone {
		t.Fatalf("expected none membership on error, got %v", membership)
	}
}

func TestRenderKeyboardEmptyIsNil(t *testing.T) {
	if renderKeyboard(nil) != nil {
		t.Fatalf("expected nil markup for nil keyboard")
	}
	if renderKeyboard(catalog.Keyboard{}) != nil {
		t.Fatalf("expected nil markup for empty keyboard")
	}
}

// fakeBotAPI records calls and replays configured errors. photoErrs is a
// per-call queue; the other error fields apply to every call.
type fakeBotAPI struct {
	nextID int

	messages   []*bot.SendMessageParams
	photos     []*bot.SendPhotoParams
	videos     []*bot.SendVideoParams
	videoNotes []*bot.SendVideoNoteParams
	documents  []*bot.SendDocumentParams
	groups     []*bot.SendMediaGroupParams
	editCalls  int

	messageErr   error
	photoErrs    []error
	videoErr     error
	videoNoteErr error
	documentErr  error
	groupErr     error

	memberType models.ChatMemberType
	memberErr  error

	approveCalls int
	approveErr   error
}

func (f *fakeBotAPI) newMessage() *models.Message {
	f.nextID++
	return &models.Message{ID: f.nextID}
}

func (f *fakeBotAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.messages = append(f.messages, params)
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	return f.newMessage(), nil
}

func (f *fakeBotAPI) SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	f.photos = append(f.photos, params)
	if len(f.photoErrs) > 0 {
		err := f.photoErrs[0]
		f.photoErrs = f.photoErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.newMessage(), nil
}

func (f *fakeBotAPI) SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error) {
	f.videos = append(f.videos, params)
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.newMessage(), nil
}

func (f *fakeBotAPI) SendVideoNote(ctx context.Context, params *bot.SendVideoNoteParams) (*models.Message, error) {
	f.videoNotes = append(f.videoNotes, params)
	if f.videoNoteErr != nil {
		return nil, f.videoNoteErr
	}
	return f.newMessage(), nil
}

func (f *fakeBotAPI) SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	f.documents = append(f.documents, params)
	if f.documentErr != nil {
		return nil, f.documentErr
	}
	return f.newMessage(), nil
}

func (f *fakeBotAPI) SendMediaGroup(ctx context.Context, params *bot.SendMediaGroupParams) ([]*models.Message, error) {
	f.groups = append(f.groups, params)
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return []*models.Message{f.newMessage()}, nil
}

func (f *fakeBotAPI) EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error) {
	f.editCalls++
	return f.newMessage(), nil
}

func (f *fakeBotAPI) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	return true, nil
}

func (f *fakeBotAPI) GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return &models.ChatMember{Type: f.memberType}, nil
}

func (f *fakeBotAPI) ApproveChatJoinRequest(ctx context.Context, params *bot.ApproveChatJoinRequestParams) (bool, error) {
	f.approveCalls++
	if f.approveErr != nil {
		return false, f.approveErr
	}
	return true, nil
}

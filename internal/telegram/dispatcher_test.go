package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/lebot/internal/bot"
)

func TestToEvent(t *testing.T) {
	alice := &tgbotapi.User{ID: 1, FirstName: "Alice", UserName: "alice"}
	bob := &tgbotapi.User{ID: 2, FirstName: "Bob"}

	tests := []struct {
		name   string
		update tgbotapi.Update
		ok     bool
		check  func(t *testing.T, ev bot.Event)
	}{
		{
			name:   "group message",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Text: "a x\n总10", From: alice, Chat: &tgbotapi.Chat{ID: -100, Type: "supergroup", Title: "Shop"}}},
			ok:     true,
			check: func(t *testing.T, ev bot.Event) {
				assert.Equal(t, int64(-100), ev.GroupID)
				assert.Equal(t, "Shop", ev.GroupName)
				assert.Equal(t, "alice", ev.SenderName)
				assert.False(t, ev.Private)
				assert.False(t, ev.IsReply)
			},
		},
		{
			name: "reply in private chat",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Text:           "/id",
				From:           alice,
				Chat:           &tgbotapi.Chat{ID: 1, Type: "private"},
				ReplyToMessage: &tgbotapi.Message{From: bob},
			}},
			ok: true,
			check: func(t *testing.T, ev bot.Event) {
				assert.True(t, ev.Private)
				assert.True(t, ev.IsReply)
				require.NotNil(t, ev.RepliedToUserID)
				assert.Equal(t, int64(2), *ev.RepliedToUserID)
				assert.Equal(t, "Bob", ev.RepliedToName)
			},
		},
		{name: "no message", update: tgbotapi.Update{}, ok: false},
		{name: "no text", update: tgbotapi.Update{Message: &tgbotapi.Message{From: alice, Chat: &tgbotapi.Chat{ID: 1}}}, ok: false},
		{name: "no chat", update: tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi", From: alice}}, ok: false},
		{name: "from a bot", update: tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi", From: &tgbotapi.User{ID: 3, IsBot: true}, Chat: &tgbotapi.Chat{ID: 1}}}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ToEvent(tt.update)
			assert.Equal(t, tt.ok, ok)
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

// scriptedAPI returns one batch of updates, then blocks until cancelled.
type scriptedAPI struct {
	mu      sync.Mutex
	batches [][]tgbotapi.Update
	offsets []int
	sent    []SendMessageRequest
	sentCh  chan struct{}
	failN   int
}

func (s *scriptedAPI) GetUpdates(ctx context.Context, offset int) ([]tgbotapi.Update, error) {
	s.mu.Lock()
	s.offsets = append(s.offsets, offset)
	if s.failN > 0 {
		s.failN--
		s.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, nil
	}
	s.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedAPI) SendMessage(ctx context.Context, req SendMessageRequest) error {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()
	s.sentCh <- struct{}{}
	return nil
}

type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, ev bot.Event) (*bot.Result, error) {
	switch ev.Text {
	case "fail":
		return nil, errors.New("ledger persistence error")
	case "quiet":
		return nil, nil
	default:
		return &bot.Result{Kind: bot.KindInfoQuery, Text: "echo " + ev.Text}, nil
	}
}

type denyGroup int64

func (d denyGroup) Allow(ctx context.Context, key string) (bool, error) {
	return key != "-2", nil
}

func msg(updateID int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: updateID, Message: &tgbotapi.Message{
		MessageID: updateID * 10,
		Text:      text,
		From:      &tgbotapi.User{ID: 7, FirstName: "u"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
	}}
}

func waitSent(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for reply %d of %d", i+1, n)
		}
	}
}

func TestDispatcherRun(t *testing.T) {
	api := &scriptedAPI{
		batches: [][]tgbotapi.Update{{
			msg(5, -1, "hello"),
			msg(6, -1, "quiet"),
			msg(7, -1, "fail"),
			msg(8, -2, "throttled group"),
			{UpdateID: 9},
		}},
		failN:  1,
		sentCh: make(chan struct{}, 10),
	}
	d := NewDispatcher(api, echoHandler{}, DispatcherConfig{
		MaxConcurrent: 2,
		GroupThrottle: denyGroup(0),
		RetryDelay:    10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitSent(t, api.sentCh, 2)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	api.mu.Lock()
	defer api.mu.Unlock()

	require.Len(t, api.sent, 2)
	byText := map[string]SendMessageRequest{}
	for _, s := range api.sent {
		byText[s.Text] = s
	}
	echo, ok := byText["echo hello"]
	require.True(t, ok, "expected echo reply, got %+v", api.sent)
	assert.Equal(t, 50, echo.ReplyToMessageID)
	assert.Equal(t, "Markdown", echo.ParseMode)

	failure, ok := byText[textInternalError]
	require.True(t, ok, "expected generic failure reply")
	assert.Equal(t, 70, failure.ReplyToMessageID)
	assert.Empty(t, failure.ParseMode)

	// First poll failed, second got the batch, third acknowledged it.
	require.GreaterOrEqual(t, len(api.offsets), 3)
	assert.Equal(t, 0, api.offsets[1])
	assert.Equal(t, 10, api.offsets[2])
}

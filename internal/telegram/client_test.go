package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI serves a tiny subset of the Bot API for a single token.
type fakeBotAPI struct {
	mu         sync.Mutex
	sent       []SendMessageRequest
	rejectMD   bool
	retryAfter int
	updates    []tgbotapi.Update
	lastOffset int
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/botTOKEN/getMe":
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 999, "is_bot": true, "first_name": "LeBot", "username": "le_bot"},
		})
	case "/botTOKEN/getUpdates":
		if f.retryAfter > 0 {
			json.NewEncoder(w).Encode(map[string]any{
				"ok":          false,
				"error_code":  429,
				"description": "Too Many Requests: retry after " + strconv.Itoa(f.retryAfter),
				"parameters":  map[string]any{"retry_after": f.retryAfter},
			})
			return
		}
		f.lastOffset, _ = strconv.Atoi(r.FormValue("offset"))
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": f.updates})
	case "/botTOKEN/sendMessage":
		chatID, _ := strconv.ParseInt(r.FormValue("chat_id"), 10, 64)
		replyTo, _ := strconv.Atoi(r.FormValue("reply_to_message_id"))
		req := SendMessageRequest{
			ChatID:           chatID,
			Text:             r.FormValue("text"),
			ParseMode:        r.FormValue("parse_mode"),
			ReplyToMessageID: replyTo,
		}
		if f.rejectMD && req.ParseMode != "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"ok":          false,
				"error_code":  400,
				"description": "Bad Request: can't parse entities: Can't find end of the entity",
			})
			return
		}
		f.sent = append(f.sent, req)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 1, "date": 0, "chat": map[string]any{"id": chatID, "type": "group"}},
		})
	default:
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 401, "description": "Unauthorized"})
	}
}

func newTestClient(t *testing.T, api *fakeBotAPI, token string) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{Token: token, APIURL: server.URL, PollTimeout: time.Second})
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{Token: "t", ProxyURL: "://bad"})
	assert.Error(t, err)

	client, err := NewClient(ClientConfig{Token: "t", ProxyURL: "http://127.0.0.1:7890"})
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL+"/bot%s/%s", client.endpoint)
}

func TestClientGetMe(t *testing.T) {
	client := newTestClient(t, &fakeBotAPI{}, "TOKEN")

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(999), me.ID)
	assert.Equal(t, "le_bot", displayName(me))
}

func TestClientAPIError(t *testing.T) {
	client := newTestClient(t, &fakeBotAPI{}, "WRONG")

	_, err := client.GetMe(context.Background())
	var apiErr *tgbotapi.Error
	require.True(t, errors.As(err, &apiErr), "expected tgbotapi.Error, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)
	assert.NotContains(t, err.Error(), "WRONG", "token must not leak into errors")
}

func TestClientTransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := NewClient(ClientConfig{Token: "SECRET123", APIURL: server.URL, PollTimeout: time.Second})
	require.NoError(t, err)

	_, err = client.GetMe(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET123")
}

func TestClientGetUpdates(t *testing.T) {
	api := &fakeBotAPI{updates: []tgbotapi.Update{
		{UpdateID: 10, Message: &tgbotapi.Message{MessageID: 1, Text: "hi", Chat: &tgbotapi.Chat{ID: -1, Type: "group"}}},
	}}
	client := newTestClient(t, api, "TOKEN")

	updates, err := client.GetUpdates(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "hi", updates[0].Message.Text)
	assert.Equal(t, 7, api.lastOffset)
}

func TestClientRetryAfter(t *testing.T) {
	client := newTestClient(t, &fakeBotAPI{retryAfter: 4}, "TOKEN")

	_, err := client.GetUpdates(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, 4*time.Second, RetryAfter(err))
	assert.Zero(t, RetryAfter(errors.New("connection reset")))
}

func TestClientHonoursCancellation(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(block) })

	client, err := NewClient(ClientConfig{Token: "TOKEN", APIURL: server.URL, PollTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetUpdates(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendMessageFallsBackToPlainText(t *testing.T) {
	api := &fakeBotAPI{rejectMD: true}
	client := newTestClient(t, api, "TOKEN")

	err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID:           -1,
		Text:             "user_name *unbalanced",
		ParseMode:        "Markdown",
		ReplyToMessageID: 5,
	})
	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	assert.Empty(t, api.sent[0].ParseMode)
	assert.Equal(t, 5, api.sent[0].ReplyToMessageID)
	assert.Equal(t, "user_name *unbalanced", api.sent[0].Text)
}

package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/lebot/internal/bot"
)

// API is the part of the Bot API the dispatcher uses.
type API interface {
	GetUpdates(ctx context.Context, offset int) ([]tgbotapi.Update, error)
	SendMessage(ctx context.Context, req SendMessageRequest) error
}

// Handler processes one chat event.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) (*bot.Result, error)
}

// Throttle limits events per key.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const textInternalError = "❌ 处理消息时出错，请稍后重试"

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// MaxConcurrent bounds the number of events handled at once.
	MaxConcurrent int
	// GroupThrottle limits events per chat before they reach the handler.
	GroupThrottle Throttle
	// RetryDelay is the pause after a failed poll. Defaults to 3s.
	RetryDelay time.Duration
}

// Dispatcher polls updates and hands each message to the Handler on a
// bounded pool of goroutines.
type Dispatcher struct {
	api      API
	handler  Handler
	throttle Throttle
	limit    int
	retry    time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(api API, handler Handler, config DispatcherConfig) *Dispatcher {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 50
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 3 * time.Second
	}
	return &Dispatcher{
		api:      api,
		handler:  handler,
		throttle: config.GroupThrottle,
		limit:    config.MaxConcurrent,
		retry:    config.RetryDelay,
	}
}

// Run polls until ctx is cancelled, then waits for in-flight events.
func (d *Dispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(d.limit)

	// In-flight events finish even after shutdown starts.
	workCtx := context.WithoutCancel(ctx)

	var offset int
	for ctx.Err() == nil {
		updates, err := d.api.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			delay := d.retry
			if wait := RetryAfter(err); wait > 0 {
				delay = wait
			}
			slog.Error("Failed to get updates", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}

		for _, update := range updates {
			offset = max(offset, update.UpdateID+1)

			ev, ok := ToEvent(update)
			if !ok {
				continue
			}
			if !d.allow(ctx, ev) {
				continue
			}

			messageID := update.Message.MessageID
			g.Go(func() error {
				d.process(workCtx, ev, messageID)
				return nil
			})
		}
	}

	slog.Info("Dispatcher stopping, draining in-flight events")
	return g.Wait()
}

func (d *Dispatcher) allow(ctx context.Context, ev bot.Event) bool {
	if d.throttle == nil {
		return true
	}
	ok, err := d.throttle.Allow(ctx, strconv.FormatInt(ev.GroupID, 10))
	if err != nil {
		slog.Warn("Group throttle unavailable", "group_id", ev.GroupID, "error", err)
		return true
	}
	return ok
}

func (d *Dispatcher) process(ctx context.Context, ev bot.Event, messageID int) {
	res, err := d.handler.Handle(ctx, ev)
	if err != nil {
		slog.Error("Failed to handle message",
			"group_id", ev.GroupID,
			"user_id", ev.SenderID,
			"error", err,
		)
		d.reply(ctx, ev.GroupID, messageID, textInternalError, "")
		return
	}
	if res == nil || res.Text == "" {
		return
	}
	d.reply(ctx, ev.GroupID, messageID, res.Text, "Markdown")
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, messageID int, text, parseMode string) {
	err := d.api.SendMessage(ctx, SendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ParseMode:        parseMode,
		ReplyToMessageID: messageID,
	})
	if err != nil {
		slog.Error("Failed to send reply", "chat_id", chatID, "error", err)
	}
}

// ToEvent converts a message update into a bot.Event. It returns false for
// updates without a text message or sender.
func ToEvent(update tgbotapi.Update) (bot.Event, bool) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return bot.Event{}, false
	}

	ev := bot.Event{
		Text:       msg.Text,
		SenderID:   msg.From.ID,
		SenderName: displayName(msg.From),
		GroupID:    msg.Chat.ID,
		GroupName:  msg.Chat.Title,
		Private:    msg.Chat.IsPrivate(),
	}
	if reply := msg.ReplyToMessage; reply != nil {
		ev.IsReply = true
		if reply.From != nil {
			id := reply.From.ID
			ev.RepliedToUserID = &id
			ev.RepliedToName = displayName(reply.From)
		}
	}
	return ev, true
}

// Package telegram adapts the Telegram Bot API to the router: a thin client
// over telegram-bot-api and the long-poll loop that feeds chat messages to
// the bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// Token is the bot token issued by BotFather.
	Token string
	// APIURL is the Bot API base URL. Defaults to DefaultAPIURL.
	APIURL string
	// ProxyURL routes all requests through an HTTP proxy when set.
	ProxyURL string
	// PollTimeout is the long-poll timeout passed to getUpdates.
	PollTimeout time.Duration
	// HTTPClient overrides the HTTP client. ProxyURL is ignored when set.
	HTTPClient *http.Client
}

// Client calls the Bot API.
type Client struct {
	bot         *tgbotapi.BotAPI
	endpoint    string
	pollTimeout time.Duration
}

// NewClient creates a new Bot API client. It does not contact Telegram;
// call GetMe to check the token.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("telegram: invalid api url %q: %w", apiURL, err)
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if config.ProxyURL != "" {
			proxy, err := url.Parse(config.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("telegram: invalid proxy url: %w", err)
			}
			transport.Proxy = http.ProxyURL(proxy)
		}
		httpClient = &http.Client{
			Transport: transport,
			// Long polls hold the request open for PollTimeout.
			Timeout: config.PollTimeout + 15*time.Second,
		}
	}

	// tgbotapi expands the endpoint with the token and the method name.
	endpoint := strings.TrimRight(apiURL, "/") + "/bot%s/%s"
	bot := &tgbotapi.BotAPI{
		Token:  config.Token,
		Client: redactingClient{httpClient},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	return &Client{
		bot:         bot,
		endpoint:    endpoint,
		pollTimeout: config.PollTimeout,
	}, nil
}

// redactingClient keeps the token, which is part of every request URL, out
// of transport errors.
type redactingClient struct {
	client *http.Client
}

func (c redactingClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = fmt.Errorf("telegram: %s failed: %w", methodOf(req.URL.Path), urlErr.Err)
		}
		return nil, err
	}
	return resp, nil
}

func methodOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// call runs fn and returns early when ctx is done. tgbotapi has no context
// support, so an abandoned request finishes in the background.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*tgbotapi.User, error) {
	me, err := call(ctx, c.bot.GetMe)
	if err != nil {
		return nil, err
	}
	c.bot.Self = me
	return &me, nil
}

// GetUpdates long-polls for updates with IDs >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = int(c.pollTimeout / time.Second)
	cfg.AllowedUpdates = []string{"message"}

	return call(ctx, func() ([]tgbotapi.Update, error) {
		return c.bot.GetUpdates(cfg)
	})
}

// SendMessage sends a message. When Telegram rejects the Markdown of a
// message, it is resent as plain text.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) error {
	err := c.send(ctx, req)

	var apiErr *tgbotapi.Error
	if req.ParseMode != "" && errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "parse entities") {
		slog.Warn("Markdown rejected, resending as plain text", "chat_id", req.ChatID)
		req.ParseMode = ""
		err = c.send(ctx, req)
	}
	return err
}

func (c *Client) send(ctx context.Context, req SendMessageRequest) error {
	_, err := call(ctx, func() (tgbotapi.Message, error) {
		return c.bot.Send(req.config())
	})
	return err
}

// RetryAfter returns the back-off Telegram asked for in err, zero if none.
func RetryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second
	}
	return 0
}

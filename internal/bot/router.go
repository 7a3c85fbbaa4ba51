// Package bot turns chat events into ledger operations and rendered replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/auth"
	"github.com/mmynk/lebot/internal/ledger"
	"github.com/mmynk/lebot/internal/metrics"
	"github.com/mmynk/lebot/internal/models"
	"github.com/mmynk/lebot/internal/parser"
)

// Throttle limits how often a key may trigger work.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Options configures a Router.
type Options struct {
	// HistoryLimit is the number of entries /history shows.
	HistoryLimit int

	// OrderThrottle, when set, limits order parsing per sender.
	OrderThrottle Throttle

	// Location is used to render timestamps. Defaults to time.Local.
	Location *time.Location
}

// Router classifies events and dispatches them.
type Router struct {
	parser   *parser.Parser
	ledger   *ledger.Ledger
	registry *auth.Registry

	historyLimit int
	throttle     Throttle
	loc          *time.Location
}

// NewRouter creates a Router.
func NewRouter(p *parser.Parser, l *ledger.Ledger, reg *auth.Registry, opts Options) *Router {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = ledger.DefaultHistoryLimit
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Router{
		parser:       p,
		ledger:       l,
		registry:     reg,
		historyLimit: opts.HistoryLimit,
		throttle:     opts.OrderThrottle,
		loc:          opts.Location,
	}
}

var (
	adjustmentPattern = regexp.MustCompile(`^([+-])\s*(\d+(?:\.\d+)?)$`)
	fullWidthSigns    = strings.NewReplacer("＋", "+", "－", "-", "．", ".")
)

// Handle processes ev. A nil Result with a nil error means the event needs
// no response. Errors are reserved for failures the caller must report, such
// as persistence errors.
func (r *Router) Handle(ctx context.Context, ev Event) (*Result, error) {
	start := time.Now()
	res, err := r.route(ctx, ev)

	kind := "ignored"
	switch {
	case err != nil:
		kind = "error"
	case res != nil:
		kind = string(res.Kind)
	}
	metrics.EventsHandled.WithLabelValues(kind).Inc()
	metrics.EventDuration.Observe(time.Since(start).Seconds())

	return res, err
}

func (r *Router) route(ctx context.Context, ev Event) (*Result, error) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return nil, nil
	}

	if strings.HasPrefix(text, "/") {
		return r.handleCommand(ctx, ev, text)
	}

	if delta, ok := parseAdjustment(text); ok {
		return r.handleAdjust(ctx, ev, delta)
	}

	if isClear(text) {
		return r.handleClear(ctx, ev)
	}

	if r.parser.HasTrigger(text) {
		return r.handleOrder(ctx, ev, text)
	}

	return nil, nil
}

// parseAdjustment recognises "+N" and "-N" with N > 0.
func parseAdjustment(text string) (decimal.Decimal, bool) {
	m := adjustmentPattern.FindStringSubmatch(fullWidthSigns.Replace(text))
	if m == nil {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(m[2])
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	if m[1] == "-" {
		amount = amount.Neg()
	}
	return amount, true
}

func isClear(text string) bool {
	return text == "清账" || text == "清帐"
}

func actorOf(ev Event) ledger.Actor {
	return ledger.Actor{ID: ev.SenderID, Name: ev.SenderName}
}

func (r *Router) handleOrder(ctx context.Context, ev Event, text string) (*Result, error) {
	if r.throttle != nil {
		ok, err := r.throttle.Allow(ctx, strconv.FormatInt(ev.SenderID, 10))
		if err != nil {
			slog.Warn("Order throttle unavailable", "user_id", ev.SenderID, "error", err)
		} else if !ok {
			slog.Warn("Order dropped by throttle",
				"user_id", ev.SenderID,
				"group_id", ev.GroupID,
			)
			return &Result{Kind: KindThrottled}, nil
		}
	}

	order, err := r.parser.Parse(text)
	switch {
	case errors.Is(err, models.ErrNotAnOrder):
		return nil, nil
	case parser.IsParseFailure(err):
		slog.Info("Order rejected",
			"group_id", ev.GroupID,
			"user_id", ev.SenderID,
			"error", err,
		)
		return &Result{Kind: KindParseFailed, Text: renderParseFailure(err)}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}

	receipt, err := r.ledger.ApplyOrder(ctx, ledger.OrderInput{
		GroupID:   ev.GroupID,
		GroupName: ev.GroupName,
		Actor:     actorOf(ev),
		Order:     order,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	return &Result{Kind: KindOrderAccepted, Text: renderOrderAccepted(order, receipt), Data: receipt}, nil
}

func (r *Router) handleAdjust(ctx context.Context, ev Event, delta decimal.Decimal) (*Result, error) {
	receipt, err := r.ledger.Adjust(ctx, ev.GroupID, ev.GroupName, actorOf(ev), delta)
	if errors.Is(err, models.ErrUnauthorized) {
		slog.Warn("Unauthorized adjustment", "group_id", ev.GroupID, "user_id", ev.SenderID)
		return &Result{Kind: KindUnauthorized, Text: textAdjustUnauthorized}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return &Result{Kind: KindAdjustmentApplied, Text: renderAdjustment(delta, receipt.Balance), Data: receipt}, nil
}

func (r *Router) handleClear(ctx context.Context, ev Event) (*Result, error) {
	result, err := r.ledger.Clear(ctx, ev.GroupID, actorOf(ev))
	if errors.Is(err, models.ErrUnauthorized) {
		slog.Warn("Unauthorized clear", "group_id", ev.GroupID, "user_id", ev.SenderID)
		return &Result{Kind: KindUnauthorized, Text: textClearUnauthorized}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to clear ledger: %w", err)
	}

	return &Result{Kind: KindCleared, Text: renderCleared(result), Data: result}, nil
}

// Package ledger owns the per-group running balances.
//
// Every group has its own slot with its own mutex. A mutation holds the slot
// lock for the whole load, modify and persist cycle, so mutations of one
// group are serialised while different groups proceed in parallel. Changes
// are built on a copy of the ledger and only become visible after the store
// accepted them.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/calculator"
	"github.com/mmynk/lebot/internal/metrics"
	"github.com/mmynk/lebot/internal/models"
)

// DefaultHistoryLimit is used by RecentHistory when no positive limit is given.
const DefaultHistoryLimit = 10

// Store persists ledgers.
type Store interface {
	LoadLedger(ctx context.Context, groupID int64) (*models.GroupLedger, error)
	SaveLedger(ctx context.Context, ledger *models.GroupLedger) error
}

// Authorizer decides who may adjust or clear a ledger.
type Authorizer interface {
	CanMutateLedger(userID, groupID int64) bool
}

// Actor identifies the chat user behind an operation.
type Actor struct {
	ID   int64
	Name string
}

// OrderInput is an accepted order to be recorded.
type OrderInput struct {
	GroupID   int64
	GroupName string
	Actor     Actor
	Order     *models.ParsedOrder
}

// Receipt describes the entry a mutation appended and the resulting balance.
type Receipt struct {
	Entry   models.LedgerEntry
	Balance decimal.Decimal
}

// ClearResult describes what a clear discarded.
type ClearResult struct {
	// Initialized is false when the group had no ledger; nothing was done.
	Initialized     bool
	PreviousBalance decimal.Decimal
	ClearedEntries  int
}

// Options configures a Ledger.
type Options struct {
	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time

	// HistoryLimit is the default RecentHistory size.
	HistoryLimit int
}

// Ledger is the state machine over all group ledgers.
type Ledger struct {
	store        Store
	auth         Authorizer
	now          func() time.Time
	historyLimit int

	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	mu     sync.Mutex
	loaded bool
	ledger *models.GroupLedger // nil while the group is uninitialized
}

// New creates a Ledger backed by store.
func New(store Store, auth Authorizer, opts Options) *Ledger {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &Ledger{
		store:        store,
		auth:         auth,
		now:          opts.Now,
		historyLimit: opts.HistoryLimit,
		slots:        make(map[int64]*slot),
	}
}

func (l *Ledger) slotFor(groupID int64) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[groupID]
	if !ok {
		s = &slot{}
		l.slots[groupID] = s
	}
	return s
}

// withSlot runs fn with the group's slot locked and hydrated from the store.
func (l *Ledger) withSlot(ctx context.Context, groupID int64, fn func(s *slot) error) error {
	s := l.slotFor(groupID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		ledger, err := l.store.LoadLedger(ctx, groupID)
		if err != nil {
			return fmt.Errorf("%w: failed to load ledger %d: %w", models.ErrPersistence, groupID, err)
		}
		s.ledger = ledger
		s.loaded = true
	}
	return fn(s)
}

// read runs fn over the ledger of groupID. Groups the store has never seen
// are answered without allocating a slot, so lookups of arbitrary IDs leave
// the slot map untouched.
func (l *Ledger) read(ctx context.Context, groupID int64, fn func(ledger *models.GroupLedger)) error {
	l.mu.Lock()
	_, cached := l.slots[groupID]
	l.mu.Unlock()

	if !cached {
		ledger, err := l.store.LoadLedger(ctx, groupID)
		if err != nil {
			return fmt.Errorf("%w: failed to load ledger %d: %w", models.ErrPersistence, groupID, err)
		}
		if ledger == nil {
			fn(nil)
			return nil
		}
		l.adopt(groupID, ledger)
	}
	return l.withSlot(ctx, groupID, func(s *slot) error {
		fn(s.ledger)
		return nil
	})
}

// adopt caches a ledger loaded outside a slot unless a slot appeared in the
// meantime.
func (l *Ledger) adopt(groupID int64, ledger *models.GroupLedger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.slots[groupID]; !ok {
		l.slots[groupID] = &slot{loaded: true, ledger: ledger}
	}
}

// commit persists next and makes it the slot's ledger. On failure the slot
// keeps its previous value.
func (l *Ledger) commit(ctx context.Context, s *slot, next *models.GroupLedger) error {
	if err := l.store.SaveLedger(ctx, next); err != nil {
		metrics.PersistenceErrors.Inc()
		slog.Error("Failed to persist ledger",
			"group_id", next.GroupID,
			"error", err,
		)
		return fmt.Errorf("%w: failed to save ledger %d: %w", models.ErrPersistence, next.GroupID, err)
	}
	s.ledger = next
	return nil
}

func (l *Ledger) appendEntry(ctx context.Context, groupID int64, groupName string, entry models.LedgerEntry) (Receipt, error) {
	var receipt Receipt
	err := l.withSlot(ctx, groupID, func(s *slot) error {
		now := l.now()

		var next *models.GroupLedger
		if s.ledger == nil {
			next = models.NewGroupLedger(groupID, groupName, now)
		} else {
			next = s.ledger.Clone()
			if groupName != "" {
				next.GroupName = groupName
			}
		}

		entry.ID = uuid.New().String()
		entry.GroupID = groupID
		entry.Timestamp = now
		next.Append(entry)

		if err := l.commit(ctx, s, next); err != nil {
			return err
		}
		receipt = Receipt{Entry: entry, Balance: next.Balance}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	metrics.LedgerEntries.WithLabelValues(string(entry.Kind)).Inc()
	return receipt, nil
}

// ApplyOrder records an order. Any member may submit one.
func (l *Ledger) ApplyOrder(ctx context.Context, in OrderInput) (Receipt, error) {
	if in.Order == nil {
		return Receipt{}, fmt.Errorf("%w: missing order", models.ErrInvalidAmount)
	}
	if in.Order.Total.IsNegative() {
		return Receipt{}, fmt.Errorf("%w: negative order total %s", models.ErrInvalidAmount, in.Order.Total)
	}

	receipt, err := l.appendEntry(ctx, in.GroupID, in.GroupName, models.LedgerEntry{
		Delta:     in.Order.Total,
		Kind:      models.EntryOrder,
		ActorID:   in.Actor.ID,
		ActorName: in.Actor.Name,
		Order:     in.Order,
	})
	if err != nil {
		return Receipt{}, err
	}

	slog.Info("Order recorded",
		"group_id", in.GroupID,
		"actor_id", in.Actor.ID,
		"total", in.Order.Total.String(),
		"balance", receipt.Balance.String(),
	)
	return receipt, nil
}

// Adjust adds delta to the balance. Positive deltas are recorded as
// admin-credit, negative ones as admin-debit. The actor must be allowed to
// mutate the group's ledger.
func (l *Ledger) Adjust(ctx context.Context, groupID int64, groupName string, actor Actor, delta decimal.Decimal) (Receipt, error) {
	if !l.auth.CanMutateLedger(actor.ID, groupID) {
		return Receipt{}, fmt.Errorf("%w: user %d cannot adjust group %d", models.ErrUnauthorized, actor.ID, groupID)
	}
	if delta.IsZero() {
		return Receipt{}, fmt.Errorf("%w: zero adjustment", models.ErrInvalidAmount)
	}

	kind := models.EntryAdminCredit
	if delta.IsNegative() {
		kind = models.EntryAdminDebit
	}

	receipt, err := l.appendEntry(ctx, groupID, groupName, models.LedgerEntry{
		Delta:     delta,
		Kind:      kind,
		ActorID:   actor.ID,
		ActorName: actor.Name,
	})
	if err != nil {
		return Receipt{}, err
	}

	slog.Info("Balance adjusted",
		"group_id", groupID,
		"actor_id", actor.ID,
		"delta", delta.String(),
		"balance", receipt.Balance.String(),
	)
	return receipt, nil
}

// Clear zeroes the balance and discards the history. Clearing a group that
// has no ledger succeeds without creating one.
func (l *Ledger) Clear(ctx context.Context, groupID int64, actor Actor) (ClearResult, error) {
	if !l.auth.CanMutateLedger(actor.ID, groupID) {
		return ClearResult{}, fmt.Errorf("%w: user %d cannot clear group %d", models.ErrUnauthorized, actor.ID, groupID)
	}

	var result ClearResult
	err := l.withSlot(ctx, groupID, func(s *slot) error {
		if s.ledger == nil {
			return nil
		}

		next := s.ledger.Clone()
		result = ClearResult{
			Initialized:     true,
			PreviousBalance: next.Balance,
			ClearedEntries:  len(next.Entries),
		}
		next.Reset(l.now())

		return l.commit(ctx, s, next)
	})
	if err != nil {
		return ClearResult{}, err
	}

	if result.Initialized {
		metrics.LedgerClears.Inc()
		slog.Info("Ledger cleared",
			"group_id", groupID,
			"actor_id", actor.ID,
			"previous_balance", result.PreviousBalance.String(),
			"entries", result.ClearedEntries,
		)
	}
	return result, nil
}

// Get returns a copy of the ledger of groupID, nil when it has none.
func (l *Ledger) Get(ctx context.Context, groupID int64) (*models.GroupLedger, error) {
	var out *models.GroupLedger
	err := l.read(ctx, groupID, func(ledger *models.GroupLedger) {
		if ledger != nil {
			out = ledger.Clone()
		}
	})
	return out, err
}

// CurrentBalance returns the balance of groupID, zero when it has no ledger.
func (l *Ledger) CurrentBalance(ctx context.Context, groupID int64) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := l.read(ctx, groupID, func(ledger *models.GroupLedger) {
		if ledger != nil {
			balance = ledger.Balance
		}
	})
	return balance, err
}

// RecentHistory returns up to limit entries, newest first. A non-positive
// limit uses the configured default.
func (l *Ledger) RecentHistory(ctx context.Context, groupID int64, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = l.historyLimit
	}

	var history []models.LedgerEntry
	err := l.read(ctx, groupID, func(ledger *models.GroupLedger) {
		if ledger == nil {
			return
		}
		entries := ledger.Entries
		n := min(limit, len(entries))
		history = make([]models.LedgerEntry, 0, n)
		for i := len(entries) - 1; i >= len(entries)-n; i-- {
			history = append(history, entries[i])
		}
	})
	return history, err
}

// Summary returns per-kind totals of the current history.
func (l *Ledger) Summary(ctx context.Context, groupID int64) (calculator.Summary, error) {
	var summary calculator.Summary
	err := l.read(ctx, groupID, func(ledger *models.GroupLedger) {
		if ledger != nil {
			summary = calculator.Summarize(ledger.Entries)
		}
	})
	return summary, err
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	// EntryOrder is a total parsed from an order message.
	EntryOrder EntryKind = "order"
	// EntryAdminCredit is a manual increase by an admin ("+N").
	EntryAdminCredit EntryKind = "admin-credit"
	// EntryAdminDebit is a manual decrease by an admin ("-N").
	EntryAdminDebit EntryKind = "admin-debit"
)

// GroupLedger is the running balance of one chat group.
//
// Balance always equals the sum of Entries[].Delta. The ledger is created
// lazily on the first order or adjustment and emptied by a clear.
type GroupLedger struct {
	// GroupID is the chat ID of the group.
	GroupID int64

	// GroupName is the last known chat title. Informational only.
	GroupName string

	// Balance is the current total.
	Balance decimal.Decimal

	// Entries is the history since the last clear, oldest first.
	Entries []LedgerEntry

	// Epoch counts clears. Storage uses it to tell an append from a reset.
	Epoch int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGroupLedger returns an empty ledger for groupID.
func NewGroupLedger(groupID int64, groupName string, now time.Time) *GroupLedger {
	return &GroupLedger{
		GroupID:   groupID,
		GroupName: groupName,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no mutable state with l.
// Entries themselves are immutable, so a shallow copy of the slice suffices.
func (l *GroupLedger) Clone() *GroupLedger {
	c := *l
	c.Entries = make([]LedgerEntry, len(l.Entries))
	copy(c.Entries, l.Entries)
	return &c
}

// Append adds e and moves the balance by e.Delta.
func (l *GroupLedger) Append(e LedgerEntry) {
	l.Entries = append(l.Entries, e)
	l.Balance = l.Balance.Add(e.Delta)
	l.UpdatedAt = e.Timestamp
}

// Reset drops the history and zeroes the balance.
func (l *GroupLedger) Reset(now time.Time) {
	l.Entries = nil
	l.Balance = decimal.Zero
	l.Epoch++
	l.UpdatedAt = now
}

// LedgerEntry is one immutable change to a group balance.
type LedgerEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// GroupID is the group the entry belongs to.
	GroupID int64

	// Timestamp is when the entry was appended.
	Timestamp time.Time

	// Delta is the signed amount added to the balance.
	Delta decimal.Decimal

	// Kind is order, admin-credit or admin-debit.
	Kind EntryKind

	// ActorID is the chat user who caused the entry.
	ActorID int64

	// ActorName is the display name of the actor at the time of the entry.
	ActorName string

	// Order holds the parsed order fields for order entries, nil otherwise.
	Order *ParsedOrder
}

// BalanceSnapshot is a point-in-time copy of a group balance taken by the
// scheduled snapshot job.
type BalanceSnapshot struct {
	GroupID    int64
	GroupName  string
	Balance    decimal.Decimal
	EntryCount int
	TakenAt    time.Time
}

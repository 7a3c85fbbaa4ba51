package service

import "time"

// GetBalanceRequest asks for the balance of one group.
type GetBalanceRequest struct {
	GroupID int64 `json:"group_id"`
}

// GetBalanceResponse carries the balance and per-kind totals of a group.
// Initialized is false when the group has never recorded an entry.
type GetBalanceResponse struct {
	GroupID     int64     `json:"group_id"`
	GroupName   string    `json:"group_name,omitempty"`
	Initialized bool      `json:"initialized"`
	Balance     string    `json:"balance"`
	OrderTotal  string    `json:"order_total"`
	OrderCount  int       `json:"order_count"`
	CreditTotal string    `json:"credit_total"`
	DebitTotal  string    `json:"debit_total"`
	EntryCount  int       `json:"entry_count"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// ListHistoryRequest asks for the most recent entries of a group.
// A non-positive Limit uses the server default.
type ListHistoryRequest struct {
	GroupID int64 `json:"group_id"`
	Limit   int   `json:"limit,omitempty"`
}

// ListHistoryResponse lists entries newest first.
type ListHistoryResponse struct {
	Entries []Entry `json:"entries"`
}

// Entry is the wire form of a ledger entry.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Delta       string    `json:"delta"`
	Kind        string    `json:"kind"`
	ActorID     int64     `json:"actor_id"`
	ActorName   string    `json:"actor_name,omitempty"`
	CustomerTag string    `json:"customer_tag,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	Items       []string  `json:"items,omitempty"`
	Expression  string    `json:"expression,omitempty"`
}

// AdjustRequest moves a group balance by Amount, a signed decimal string.
type AdjustRequest struct {
	GroupID int64  `json:"group_id"`
	Amount  string `json:"amount"`
}

// AdjustResponse describes the appended entry.
type AdjustResponse struct {
	EntryID string `json:"entry_id"`
	Kind    string `json:"kind"`
	Delta   string `json:"delta"`
	Balance string `json:"balance"`
}

// ClearRequest zeroes a group balance.
type ClearRequest struct {
	GroupID int64 `json:"group_id"`
}

// ClearResponse reports what was discarded. Cleared is false when the group
// had no ledger.
type ClearResponse struct {
	Cleared         bool   `json:"cleared"`
	PreviousBalance string `json:"previous_balance"`
	ClearedEntries  int    `json:"cleared_entries"`
}

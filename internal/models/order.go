package models

import "github.com/shopspring/decimal"

// ParsedOrder is the structured form of an order message.
// It is stored only as part of the LedgerEntry it produces.
type ParsedOrder struct {
	// CustomerTag is the first content line (usually the customer's name).
	CustomerTag string `json:"customer_tag"`

	// Phone is the first line recognised as a phone number, if any.
	Phone string `json:"phone,omitempty"`

	// Address is the first line recognised as an address, if any.
	Address string `json:"address,omitempty"`

	// Items are the remaining content lines in message order.
	Items []string `json:"items,omitempty"`

	// Total is the resolved amount credited to the ledger.
	Total decimal.Decimal `json:"total"`

	// Expression is the formula the total was computed from, empty for a
	// bare number.
	Expression string `json:"expression,omitempty"`

	// StatedTotal is the literal after "=" when a formula carried one.
	StatedTotal *decimal.Decimal `json:"stated_total,omitempty"`
}

// Mismatch reports whether a stated total was given and differs from Total.
func (o *ParsedOrder) Mismatch() bool {
	return o.StatedTotal != nil && !o.StatedTotal.Equal(o.Total)
}

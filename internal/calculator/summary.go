package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/models"
)

// Summary aggregates a ledger history by entry kind.
type Summary struct {
	Balance decimal.Decimal

	OrderTotal decimal.Decimal
	OrderCount int

	CreditTotal decimal.Decimal
	CreditCount int

	// DebitTotal is the sum of debit deltas and is therefore <= 0.
	DebitTotal decimal.Decimal
	DebitCount int
}

// Summarize folds entries into per-kind totals. Balance is the sum of all
// deltas, which for a consistent ledger equals GroupLedger.Balance.
func Summarize(entries []models.LedgerEntry) Summary {
	s := Summary{
		Balance:     decimal.Zero,
		OrderTotal:  decimal.Zero,
		CreditTotal: decimal.Zero,
		DebitTotal:  decimal.Zero,
	}
	for _, e := range entries {
		s.Balance = s.Balance.Add(e.Delta)
		switch e.Kind {
		case models.EntryOrder:
			s.OrderTotal = s.OrderTotal.Add(e.Delta)
			s.OrderCount++
		case models.EntryAdminCredit:
			s.CreditTotal = s.CreditTotal.Add(e.Delta)
			s.CreditCount++
		case models.EntryAdminDebit:
			s.DebitTotal = s.DebitTotal.Add(e.Delta)
			s.DebitCount++
		}
	}
	return s
}

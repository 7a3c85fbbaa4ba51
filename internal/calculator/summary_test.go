package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mmynk/lebot/internal/models"
)

func TestSummarize(t *testing.T) {
	entries := []models.LedgerEntry{
		{Kind: models.EntryOrder, Delta: decimal.NewFromInt(186)},
		{Kind: models.EntryOrder, Delta: decimal.NewFromInt(116)},
		{Kind: models.EntryAdminCredit, Delta: decimal.NewFromInt(100)},
		{Kind: models.EntryAdminDebit, Delta: decimal.NewFromInt(-50)},
	}

	s := Summarize(entries)

	assert.True(t, s.Balance.Equal(decimal.NewFromInt(352)), "balance = %s", s.Balance)
	assert.True(t, s.OrderTotal.Equal(decimal.NewFromInt(302)), "order total = %s", s.OrderTotal)
	assert.Equal(t, 2, s.OrderCount)
	assert.True(t, s.CreditTotal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, s.CreditCount)
	assert.True(t, s.DebitTotal.Equal(decimal.NewFromInt(-50)))
	assert.Equal(t, 1, s.DebitCount)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.Balance.IsZero())
	assert.Zero(t, s.OrderCount)
}

// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/lebot/internal/models"
)

// Store defines the persistence contract for ledgers and admin assignments.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger or permission layers.
type Store interface {
	// LoadLedger returns the persisted ledger of a group.
	// Returns nil and no error if the group has no ledger yet.
	LoadLedger(ctx context.Context, groupID int64) (*models.GroupLedger, error)

	// SaveLedger atomically replaces the persisted state of ledger.
	// Either the balance and history are both written or neither is.
	SaveLedger(ctx context.Context, ledger *models.GroupLedger) error

	// LoadAdminSets returns the persisted admin assignments, empty if none.
	LoadAdminSets(ctx context.Context) (models.AdminSets, error)

	// SaveAdminSets atomically replaces the persisted admin assignments.
	SaveAdminSets(ctx context.Context, sets models.AdminSets) error

	// ListLedgerBalances returns the current balance and entry count of every
	// group. TakenAt is left zero.
	ListLedgerBalances(ctx context.Context) ([]models.BalanceSnapshot, error)

	// SaveSnapshots appends balance snapshots.
	SaveSnapshots(ctx context.Context, snapshots []models.BalanceSnapshot) error

	// Close releases any resources held by the store.
	Close() error
}

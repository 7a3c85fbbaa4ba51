package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/lebot/internal/models"
)

// ListLedgerBalances returns the balance of every known group, ordered by group ID.
func (s *SQLiteStore) ListLedgerBalances(ctx context.Context) ([]models.BalanceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.group_id, l.group_name, l.balance,
		        (SELECT COUNT(*) FROM ledger_entries e WHERE e.group_id = l.group_id AND e.epoch = l.epoch)
		 FROM ledgers l
		 ORDER BY l.group_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}
	defer rows.Close()

	var balances []models.BalanceSnapshot
	for rows.Next() {
		var b models.BalanceSnapshot
		if err := rows.Scan(&b.GroupID, &b.GroupName, &b.Balance, &b.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan ledger balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledgers: %w", err)
	}

	return balances, nil
}

// SaveSnapshots appends snapshots in a single transaction.
func (s *SQLiteStore) SaveSnapshots(ctx context.Context, snapshots []models.BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, snap := range snapshots {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO balance_snapshots (group_id, group_name, balance, entry_count, taken_at)
			 VALUES (?, ?, ?, ?, ?)`,
			snap.GroupID, snap.GroupName, snap.Balance.String(), snap.EntryCount, snap.TakenAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/lebot/internal/models"
	"github.com/mmynk/lebot/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serialise through one connection so
	// concurrent groups queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadLedger retrieves a group ledger with the entries of its current epoch.
func (s *SQLiteStore) LoadLedger(ctx context.Context, groupID int64) (*models.GroupLedger, error) {
	ledger := &models.GroupLedger{GroupID: groupID}
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT group_name, balance, epoch, created_at, updated_at FROM ledgers WHERE group_id = ?",
		groupID,
	).Scan(&ledger.GroupName, &ledger.Balance, &ledger.Epoch, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Uninitialized group
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	ledger.CreatedAt = fromUnixNano(createdAt)
	ledger.UpdatedAt = fromUnixNano(updatedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, delta, kind, actor_id, actor_name, order_json
		 FROM ledger_entries WHERE group_id = ? AND epoch = ? ORDER BY seq`,
		groupID, ledger.Epoch,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := models.LedgerEntry{GroupID: groupID}
		var ts int64
		var kind string
		var orderJSON sql.NullString
		if err := rows.Scan(&entry.ID, &ts, &entry.Delta, &kind, &entry.ActorID, &entry.ActorName, &orderJSON); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Timestamp = fromUnixNano(ts)
		entry.Kind = models.EntryKind(kind)
		if orderJSON.Valid {
			var order models.ParsedOrder
			if err := json.Unmarshal([]byte(orderJSON.String), &order); err != nil {
				return nil, fmt.Errorf("failed to decode order of entry %s: %w", entry.ID, err)
			}
			entry.Order = &order
		}
		ledger.Entries = append(ledger.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return ledger, nil
}

// SaveLedger writes the ledger row and any entries not yet persisted in the
// current epoch. Entries of earlier epochs (before a clear) are deleted.
func (s *SQLiteStore) SaveLedger(ctx context.Context, ledger *models.GroupLedger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledgers (group_id, group_name, balance, epoch, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(group_id) DO UPDATE SET
		     group_name = excluded.group_name,
		     balance = excluded.balance,
		     epoch = excluded.epoch,
		     updated_at = excluded.updated_at`,
		ledger.GroupID, ledger.GroupName, ledger.Balance.String(), ledger.Epoch,
		ledger.CreatedAt.UnixNano(), ledger.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ledger: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM ledger_entries WHERE group_id = ? AND epoch <> ?",
		ledger.GroupID, ledger.Epoch,
	)
	if err != nil {
		return fmt.Errorf("failed to delete stale entries: %w", err)
	}

	var persisted int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE group_id = ? AND epoch = ?",
		ledger.GroupID, ledger.Epoch,
	).Scan(&persisted)
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if persisted > len(ledger.Entries) {
		return fmt.Errorf("ledger %d is behind storage: %d entries stored, %d in memory",
			ledger.GroupID, persisted, len(ledger.Entries))
	}

	for seq := persisted; seq < len(ledger.Entries); seq++ {
		entry := ledger.Entries[seq]

		var orderJSON interface{} = nil
		if entry.Order != nil {
			b, err := json.Marshal(entry.Order)
			if err != nil {
				return fmt.Errorf("failed to encode order: %w", err)
			}
			orderJSON = string(b)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (id, group_id, epoch, seq, ts, delta, kind, actor_id, actor_name, order_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, ledger.GroupID, ledger.Epoch, seq, entry.Timestamp.UnixNano(),
			entry.Delta.String(), string(entry.Kind), entry.ActorID, entry.ActorName, orderJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/lebot/internal/models"
)

const (
	scopeGlobal = "global"
	scopeGroup  = "group"
)

// LoadAdminSets retrieves all admin assignments and the current version.
func (s *SQLiteStore) LoadAdminSets(ctx context.Context) (models.AdminSets, error) {
	sets := models.NewAdminSets()

	err := s.db.QueryRowContext(ctx, "SELECT version FROM admin_meta WHERE id = 1").Scan(&sets.Version)
	if err != nil && err != sql.ErrNoRows {
		return sets, fmt.Errorf("failed to get admin version: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT scope, user_id, group_id FROM admins")
	if err != nil {
		return sets, fmt.Errorf("failed to get admins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scope string
		var userID, groupID int64
		if err := rows.Scan(&scope, &userID, &groupID); err != nil {
			return sets, fmt.Errorf("failed to scan admin: %w", err)
		}
		switch scope {
		case scopeGlobal:
			sets.Global[userID] = struct{}{}
		case scopeGroup:
			if sets.Group[groupID] == nil {
				sets.Group[groupID] = make(map[int64]struct{})
			}
			sets.Group[groupID][userID] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return sets, fmt.Errorf("failed to iterate admins: %w", err)
	}

	return sets, nil
}

// SaveAdminSets replaces every admin assignment with sets.
func (s *SQLiteStore) SaveAdminSets(ctx context.Context, sets models.AdminSets) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM admins"); err != nil {
		return fmt.Errorf("failed to delete admins: %w", err)
	}

	for userID := range sets.Global {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO admins (scope, user_id, group_id) VALUES (?, ?, 0)",
			scopeGlobal, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert global admin: %w", err)
		}
	}

	for groupID, members := range sets.Group {
		for userID := range members {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO admins (scope, user_id, group_id) VALUES (?, ?, ?)",
				scopeGroup, userID, groupID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert group admin: %w", err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO admin_meta (id, version) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version`,
		sets.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update admin version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

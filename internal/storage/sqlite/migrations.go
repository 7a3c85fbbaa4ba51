package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Money columns are TEXT holding decimal strings; timestamps are unix nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS ledgers (
    group_id INTEGER PRIMARY KEY,
    group_name TEXT NOT NULL DEFAULT '',
    balance TEXT NOT NULL,
    epoch INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    group_id INTEGER NOT NULL,
    epoch INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    ts INTEGER NOT NULL,
    delta TEXT NOT NULL,
    kind TEXT NOT NULL,
    actor_id INTEGER NOT NULL,
    actor_name TEXT NOT NULL DEFAULT '',
    order_json TEXT,
    FOREIGN KEY (group_id) REFERENCES ledgers(group_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS admins (
    scope TEXT NOT NULL CHECK (scope IN ('global', 'group')),
    user_id INTEGER NOT NULL,
    group_id INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (scope, user_id, group_id)
);

CREATE TABLE IF NOT EXISTS admin_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS balance_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id INTEGER NOT NULL,
    group_name TEXT NOT NULL DEFAULT '',
    balance TEXT NOT NULL,
    entry_count INTEGER NOT NULL,
    taken_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_entries_group_seq ON ledger_entries(group_id, epoch, seq);
CREATE INDEX IF NOT EXISTS idx_balance_snapshots_group_id ON balance_snapshots(group_id, taken_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

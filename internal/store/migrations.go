package store

import (
	"fmt"
)

// baseSchema creates the full current schema for a brand-new database.
// Every statement is idempotent, so the whole block reruns on each open.
const baseSchema = `
CREATE TABLE IF NOT EXISTS files (
    id               TEXT PRIMARY KEY,
    original_name    TEXT NOT NULL,
    new_name         TEXT NOT NULL,
    original_path    TEXT NOT NULL,
    current_path     TEXT NOT NULL,
    relative_path    TEXT NOT NULL DEFAULT '',
    category         TEXT NOT NULL CHECK (category IN ('Projects', 'Areas', 'Resources', 'Archives')),
    subcategory      TEXT,
    summary          TEXT,
    notes            TEXT,
    file_size        INTEGER NOT NULL DEFAULT 0,
    file_type        TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL,
    imported_at      TEXT NOT NULL,
    modified_at      TEXT NOT NULL,
    lifecycle_stage  TEXT NOT NULL DEFAULT 'active',
    last_accessed_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_files_category      ON files(category);
CREATE INDEX IF NOT EXISTS idx_files_stage         ON files(lifecycle_stage);
CREATE INDEX IF NOT EXISTS idx_files_last_accessed ON files(last_accessed_at);
CREATE INDEX IF NOT EXISTS idx_files_imported      ON files(imported_at DESC);
CREATE INDEX IF NOT EXISTS idx_files_current_path  ON files(current_path);

CREATE TABLE IF NOT EXISTS tags (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL UNIQUE,
    color        TEXT NOT NULL DEFAULT '',
    usage_count  INTEGER NOT NULL DEFAULT 0,
    is_favorite  INTEGER NOT NULL DEFAULT 0,
    parent_id    TEXT REFERENCES tags(id),
    created_at   TEXT NOT NULL,
    last_used_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_tags (
    file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    tag_id  TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (file_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag_id);

-- parent_subcategory_id is '' for top-level rows, never NULL: a NULL
-- in the UNIQUE triple would make SQLite treat every duplicate as
-- distinct and the uniqueness constraint would never bind.
CREATE TABLE IF NOT EXISTS subcategories (
    id                     TEXT PRIMARY KEY,
    name                   TEXT NOT NULL,
    parent_category        TEXT NOT NULL,
    parent_subcategory_id  TEXT NOT NULL DEFAULT '',
    created_at             TEXT NOT NULL,
    UNIQUE (name, parent_category, parent_subcategory_id)
);

CREATE TABLE IF NOT EXISTS file_embeddings (
    file_id    TEXT PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
    embedding  BLOB NOT NULL,
    provider   TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_transitions (
    id                TEXT PRIMARY KEY,
    file_id           TEXT NOT NULL,
    file_name         TEXT NOT NULL,
    from_category     TEXT NOT NULL,
    to_category       TEXT NOT NULL,
    from_subcategory  TEXT,
    to_subcategory    TEXT,
    reason            TEXT NOT NULL,
    notes             TEXT,
    triggered_at      TEXT NOT NULL,
    is_automatic      INTEGER NOT NULL DEFAULT 0,
    confirmed_by_user INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_transitions_file      ON file_transitions(file_id, triggered_at DESC);
CREATE INDEX IF NOT EXISTS idx_transitions_triggered ON file_transitions(triggered_at DESC);
`

// columnMigration adds one column to a table that pre-dates it.
// Strictly additive: columns are never dropped or renamed. Backfill runs
// once, immediately after the ALTER, for rows that existed before the
// column did.
type columnMigration struct {
	Table    string
	Column   string
	AddSQL   string
	Backfill string
}

var columnMigrations = []columnMigration{
	{
		Table:  "files",
		Column: "lifecycle_stage",
		AddSQL: `ALTER TABLE files ADD COLUMN lifecycle_stage TEXT NOT NULL DEFAULT 'active'`,
	},
	{
		Table:    "files",
		Column:   "last_accessed_at",
		AddSQL:   `ALTER TABLE files ADD COLUMN last_accessed_at TEXT NOT NULL DEFAULT ''`,
		Backfill: `UPDATE files SET last_accessed_at = imported_at WHERE last_accessed_at = ''`,
	},
	{
		Table:    "files",
		Column:   "relative_path",
		AddSQL:   `ALTER TABLE files ADD COLUMN relative_path TEXT NOT NULL DEFAULT ''`,
		Backfill: `UPDATE files SET relative_path = current_path WHERE relative_path = ''`,
	},
	{
		Table:  "tags",
		Column: "parent_id",
		AddSQL: `ALTER TABLE tags ADD COLUMN parent_id TEXT REFERENCES tags(id)`,
	},
}

// migrate brings the live schema up to the current version. Idempotent:
// a second call in a row is a no-op. Runs on every open.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(baseSchema); err != nil {
		return fmt.Errorf("base schema: %w", err)
	}

	for _, m := range columnMigrations {
		has, err := db.hasColumn(m.Table, m.Column)
		if err != nil {
			return fmt.Errorf("inspect %s.%s: %w", m.Table, m.Column, err)
		}
		if has {
			continue
		}
		if _, err := db.conn.Exec(m.AddSQL); err != nil {
			return fmt.Errorf("add column %s.%s: %w", m.Table, m.Column, err)
		}
		if m.Backfill != "" {
			if _, err := db.conn.Exec(m.Backfill); err != nil {
				return fmt.Errorf("backfill %s.%s: %w", m.Table, m.Column, err)
			}
		}
	}

	// Databases created before the '' convention carry NULL parents,
	// which escape the UNIQUE triple. Normalize them on every open.
	if _, err := db.conn.Exec(`UPDATE subcategories SET parent_subcategory_id = '' WHERE parent_subcategory_id IS NULL`); err != nil {
		return fmt.Errorf("normalize subcategory parents: %w", err)
	}

	return nil
}

// hasColumn reports whether the live schema has the named column.
func (db *DB) hasColumn(table, column string) (bool, error) {
	rows, err := db.conn.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

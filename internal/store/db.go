package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is the serialization format for every timestamp column.
// Fixed-width UTC so lexicographic comparison in SQL matches time order.
const timeFormat = "2006-01-02T15:04:05Z"

// formatTime serializes a time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime deserializes a stored timestamp. Unparsable values fall back
// to now rather than failing the read.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

// DB wraps the sql.DB connection to the fileflow SQLite database.
// All mutating methods serialize on mu; reads run concurrently under WAL.
type DB struct {
	mu   sync.Mutex
	conn *sql.DB

	Path string
	Root string // configured data root, used for relative path computation
}

// PathForRoot returns the database path inside a configured data root:
// <root>/.fileflow/fileflow.db
func PathForRoot(root string) string {
	return filepath.Join(root, ".fileflow", "fileflow.db")
}

// DefaultPath returns the fallback database path when no data root is
// configured: ~/.fileflow/fileflow.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".fileflow", "fileflow.db"), nil
}

// Open opens (or creates) the SQLite database at the given path,
// configures pragmas, and runs migrations.
func Open(path string) (*DB, error) {
	conn, err := openConn(path)
	if err != nil {
		return nil, err
	}
	db := &DB{conn: conn, Path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory SQLite database for testing.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(":memory:"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every new pool connection to :memory: is a separate empty
	// database, so the pool must stay at one connection.
	conn.SetMaxOpenConns(1)
	db := &DB{conn: conn, Path: ":memory:"}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func openConn(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return conn, nil
}

// dsn builds the connection string. Pragmas ride in the DSN so the
// driver applies them to every pool connection; database/sql opens
// connections on demand and a pragma run through Exec only reaches
// whichever connection the pool handed out. foreign_keys in particular
// must hold on all of them or ON DELETE CASCADE silently stops firing.
func dsn(path string) string {
	params := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=mmap_size(268435456)", // 256MB
		"_pragma=cache_size(-8000)",    // ~8MB page cache
		"_pragma=temp_store(MEMORY)",
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

// Reopen closes the current connection and opens a fresh one at the
// given path, re-running migrations. Called when the configured data
// root changes; existing data is not migrated to the new location.
// A no-op when the path is unchanged.
func (db *DB) Reopen(path string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if path == db.Path {
		return nil
	}

	conn, err := openConn(path)
	if err != nil {
		return err
	}
	next := &DB{conn: conn, Path: path}
	if err := next.migrate(); err != nil {
		conn.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	old := db.conn
	db.conn = conn
	db.Path = path
	if old != nil {
		old.Close()
	}
	return nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// relativePath computes the path of p relative to the configured root.
// Falls back to the absolute path when no root is configured or the
// path lies outside the root.
func (db *DB) relativePath(p string) string {
	if db.Root == "" {
		return p
	}
	rel, err := filepath.Rel(db.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

// testDB is a helper that creates an in-memory DB for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "fileflow.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if db.Path != path {
		t.Errorf("Path = %q, want %q", db.Path, path)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// Second pass must be a no-op, not an error.
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	for _, col := range []string{"lifecycle_stage", "last_accessed_at", "relative_path"} {
		has, err := db.hasColumn("files", col)
		if err != nil {
			t.Fatalf("hasColumn %s: %v", col, err)
		}
		if !has {
			t.Errorf("expected files.%s after migrate", col)
		}
	}
}

func TestMigrateOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileflow.db")

	// Build a store that pre-dates the lifecycle columns.
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	_, err = conn.Exec(`
		CREATE TABLE files (
			id TEXT PRIMARY KEY,
			original_name TEXT NOT NULL,
			new_name TEXT NOT NULL,
			original_path TEXT NOT NULL,
			current_path TEXT NOT NULL,
			category TEXT NOT NULL,
			subcategory TEXT,
			summary TEXT,
			notes TEXT,
			file_size INTEGER NOT NULL DEFAULT 0,
			file_type TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			imported_at TEXT NOT NULL,
			modified_at TEXT NOT NULL
		);
		INSERT INTO files (id, original_name, new_name, original_path, current_path, category,
			created_at, imported_at, modified_at)
		VALUES ('f1', 'a.txt', 'a.txt', '/x/a.txt', '/x/a.txt', 'Projects',
			'2024-01-01T00:00:00Z', '2024-01-02T00:00:00Z', '2024-01-01T00:00:00Z');

		CREATE TABLE subcategories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			parent_category TEXT NOT NULL,
			parent_subcategory_id TEXT,
			created_at TEXT NOT NULL,
			UNIQUE (name, parent_category, parent_subcategory_id)
		);
		INSERT INTO subcategories (id, name, parent_category, parent_subcategory_id, created_at)
		VALUES ('s1', 'thesis', 'Projects', NULL, '2024-01-01T00:00:00Z');
	`)
	if err != nil {
		t.Fatalf("seed old schema: %v", err)
	}
	conn.Close()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open over old schema: %v", err)
	}
	defer db.Close()

	f, err := db.GetFile("f1")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f == nil {
		t.Fatal("expected pre-existing row to survive migration")
	}
	if f.Stage != StageActive {
		t.Errorf("stage = %q, want default active", f.Stage)
	}
	// last_accessed_at backfills from imported_at for rows that pre-date it.
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !f.LastAccessed.Equal(want) {
		t.Errorf("last_accessed = %v, want backfilled %v", f.LastAccessed, want)
	}
	if f.RelativePath != "/x/a.txt" {
		t.Errorf("relative_path = %q, want backfilled current_path", f.RelativePath)
	}

	// NULL parents from the old schema normalize to '' on open, so a
	// re-create of the same triple finds the existing row instead of
	// slipping past the UNIQUE constraint.
	sub, err := db.CreateSubcategory("thesis", CategoryProjects, "")
	if err != nil {
		t.Fatalf("CreateSubcategory over old schema: %v", err)
	}
	if sub.ID != "s1" {
		t.Errorf("sub.ID = %q, want pre-existing s1", sub.ID)
	}
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM subcategories`).Scan(&n); err != nil {
		t.Fatalf("count subcategories: %v", err)
	}
	if n != 1 {
		t.Errorf("subcategory rows = %d, want 1", n)
	}
}

func TestCascadeDeleteOnFreshPoolConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fileflow.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	tag, err := db.CreateTag("reports")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	f := seedFile(t, db, "q3.pdf", CategoryProjects, *tag)
	if err := db.SaveEmbedding(f.ID, []float32{0.1, 0.2}, "local"); err != nil {
		t.Fatalf("SaveEmbedding: %v", err)
	}

	// Pin the pool's first connection so the delete below is forced
	// onto a second, freshly opened one. Foreign keys must hold there
	// too or the cascade silently stops firing.
	ctx := context.Background()
	pinned, err := db.conn.Conn(ctx)
	if err != nil {
		t.Fatalf("pin connection: %v", err)
	}
	defer pinned.Close()

	if err := db.DeleteFile(f.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	var rels, embs int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM file_tags WHERE file_id = ?`, f.ID).Scan(&rels); err != nil {
		t.Fatalf("count file_tags: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM file_embeddings WHERE file_id = ?`, f.ID).Scan(&embs); err != nil {
		t.Fatalf("count file_embeddings: %v", err)
	}
	if rels != 0 || embs != 0 {
		t.Errorf("dangling rows after delete: file_tags=%d file_embeddings=%d, want 0", rels, embs)
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "one", "fileflow.db")
	second := filepath.Join(dir, "two", "fileflow.db")

	db, err := Open(first)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.SaveFile(&File{OriginalName: "a", NewName: "a", OriginalPath: "/a", CurrentPath: "/a", Category: CategoryProjects}, nil); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	// Moving the root opens a fresh store; existing data stays behind.
	if err := db.Reopen(second); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if db.Path != second {
		t.Errorf("Path = %q, want %q", db.Path, second)
	}
	files, err := db.RecentFiles(10)
	if err != nil {
		t.Fatalf("RecentFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty store at new location, got %d files", len(files))
	}

	// Reopen on the same path is a no-op.
	if err := db.Reopen(second); err != nil {
		t.Fatalf("Reopen same path: %v", err)
	}
}

func TestPathForRoot(t *testing.T) {
	got := PathForRoot("/data")
	want := filepath.Join("/data", ".fileflow", "fileflow.db")
	if got != want {
		t.Errorf("PathForRoot = %q, want %q", got, want)
	}
}

func TestParseTimeDefensive(t *testing.T) {
	before := time.Now().UTC()
	got := parseTime("not-a-timestamp")
	if got.Before(before.Add(-time.Minute)) {
		t.Errorf("unparsable timestamp should fall back to now, got %v", got)
	}

	exact := parseTime("2024-06-01T12:00:00Z")
	if !exact.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("parseTime round = %v", exact)
	}
}

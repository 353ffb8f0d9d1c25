package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const tagColumns = `id, name, color, usage_count, is_favorite, parent_id, created_at, last_used_at`

// tagColors is the palette new tags cycle through.
var tagColors = []string{
	"#e06c75", "#d19a66", "#e5c07b", "#98c379",
	"#56b6c2", "#61afef", "#c678dd", "#be5046",
}

// CreateTag creates a tag or returns the existing one with the same
// name. Names are unique; create-or-fetch keeps the UNIQUE constraint
// from ever firing on the public path.
func (db *DB) CreateTag(name string) (*Tag, error) {
	existing, err := db.GetTagByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	t := &Tag{
		ID:         uuid.NewString(),
		Name:       name,
		Color:      tagColors[len(name)%len(tagColors)],
		CreatedAt:  now,
		LastUsedAt: now,
	}
	_, err = db.conn.Exec(`
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, 0, 0, NULL, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, t.ID, t.Name, t.Color, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}

	// A concurrent create for the same name may have won; fetch what
	// actually landed.
	row := db.conn.QueryRow(`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)
	stored, err := scanTagRow(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("fetch created tag: %w", err)
	}
	return stored, nil
}

// GetTag returns a tag by id, or nil if not found.
func (db *DB) GetTag(id string) (*Tag, error) {
	row := db.conn.QueryRow(`SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	t, err := scanTagRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// GetTagByName returns a tag by exact name, or nil if not found.
func (db *DB) GetTagByName(name string) (*Tag, error) {
	row := db.conn.QueryRow(`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)
	t, err := scanTagRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag by name: %w", err)
	}
	return t, nil
}

// AllTags returns every tag ordered by usage, most used first.
func (db *DB) AllTags() ([]Tag, error) {
	rows, err := db.conn.Query(`SELECT ` + tagColumns + ` FROM tags ORDER BY usage_count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("all tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// DeleteTag removes a tag; its relation rows cascade.
func (db *DB) DeleteTag(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// SetTagFavorite flips the favorite flag.
func (db *DB) SetTagFavorite(id string, favorite bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	fav := 0
	if favorite {
		fav = 1
	}
	if _, err := db.conn.Exec(`UPDATE tags SET is_favorite = ? WHERE id = ?`, fav, id); err != nil {
		return fmt.Errorf("set tag favorite: %w", err)
	}
	return nil
}

// AddTagToFile associates one tag with one file and bumps the tag's
// usage. Idempotent: an already-present relation leaves usage alone.
func (db *DB) AddTagToFile(fileID, tagID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin add tag: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)`, fileID, tagID)
	if err != nil {
		return fmt.Errorf("add tag to file: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := tx.Exec(`
			UPDATE tags SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?
		`, formatTime(time.Now()), tagID); err != nil {
			return fmt.Errorf("bump tag usage: %w", err)
		}
	}
	return tx.Commit()
}

// RemoveTagFromFile removes the relation and decrements usage, floored
// at zero.
func (db *DB) RemoveTagFromFile(fileID, tagID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin remove tag: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM file_tags WHERE file_id = ? AND tag_id = ?`, fileID, tagID)
	if err != nil {
		return fmt.Errorf("remove tag from file: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := tx.Exec(`
			UPDATE tags SET usage_count = MAX(usage_count - 1, 0) WHERE id = ?
		`, tagID); err != nil {
			return fmt.Errorf("drop tag usage: %w", err)
		}
	}
	return tx.Commit()
}

// TagsForFile returns the tags associated with a file, by name.
func (db *DB) TagsForFile(fileID string) ([]Tag, error) {
	rows, err := db.conn.Query(`
		SELECT `+prefixedTagColumns("t")+` FROM tags t
		JOIN file_tags ft ON ft.tag_id = t.id
		WHERE ft.file_id = ?
		ORDER BY t.name
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("tags for file: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// FilesWithTag returns the files carrying the given tag, newest import
// first.
func (db *DB) FilesWithTag(tagID string) ([]File, error) {
	return db.queryFiles(`
		SELECT `+fileColumns+` FROM files
		WHERE id IN (SELECT file_id FROM file_tags WHERE tag_id = ?)
		ORDER BY imported_at DESC
	`, tagID)
}

// TagParents returns the tag hierarchy as an id -> parent id adjacency
// map. Acyclicity is not enforced by the schema; walkers should bound
// their traversal depth.
func (db *DB) TagParents() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, parent_id FROM tags WHERE parent_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("tag parents: %w", err)
	}
	defer rows.Close()

	parents := make(map[string]string)
	for rows.Next() {
		var id, parent string
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, fmt.Errorf("scan tag parent: %w", err)
		}
		parents[id] = parent
	}
	return parents, rows.Err()
}

// SetTagParent sets or clears (empty parentID) a tag's parent.
func (db *DB) SetTagParent(id, parentID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`UPDATE tags SET parent_id = NULLIF(?, '') WHERE id = ?`, parentID, id); err != nil {
		return fmt.Errorf("set tag parent: %w", err)
	}
	return nil
}

// RenameError reports which on-disk marker rewrites failed during a tag
// rename. The logical rename in the store has already committed when
// this is returned.
type RenameError struct {
	Tag    string
	Failed []string
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("rename tag %q: %d filename rewrite(s) failed", e.Tag, len(e.Failed))
}

// RenameTag renames the tag in the store, then rewrites the "#tag"
// marker in every affected file's on-disk name. The filesystem pass is
// best-effort per file: failures are collected, never retried, and do
// not roll back the store rename.
func (db *DB) RenameTag(id, newName string) error {
	tag, err := db.GetTag(id)
	if err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("rename tag: no tag with id %s", id)
	}
	oldName := tag.Name

	db.mu.Lock()
	_, err = db.conn.Exec(`UPDATE tags SET name = ? WHERE id = ?`, newName, id)
	db.mu.Unlock()
	if err != nil {
		return fmt.Errorf("rename tag: %w", err)
	}

	files, err := db.FilesWithTag(id)
	if err != nil {
		return fmt.Errorf("rename tag: list files: %w", err)
	}

	renameErr := &RenameError{Tag: newName}
	oldMarker := "#" + oldName
	newMarker := "#" + newName
	for _, f := range files {
		if !strings.Contains(f.NewName, oldMarker) {
			continue
		}
		renamed := strings.ReplaceAll(f.NewName, oldMarker, newMarker)
		newPath := filepath.Join(filepath.Dir(f.CurrentPath), renamed)
		if err := os.Rename(f.CurrentPath, newPath); err != nil {
			log.Printf("store: rename marker in %s: %v", f.CurrentPath, err)
			renameErr.Failed = append(renameErr.Failed, f.CurrentPath)
			continue
		}
		db.mu.Lock()
		_, err = db.conn.Exec(`
			UPDATE files SET new_name = ?, current_path = ?, relative_path = ?, modified_at = ?
			WHERE id = ?
		`, renamed, newPath, db.relativePath(newPath), formatTime(time.Now()), f.ID)
		db.mu.Unlock()
		if err != nil {
			log.Printf("store: record marker rename for %s: %v", f.ID, err)
			renameErr.Failed = append(renameErr.Failed, f.CurrentPath)
		}
	}

	if len(renameErr.Failed) > 0 {
		return renameErr
	}
	return nil
}

// RecountTagUsage resets a tag's usage_count to its actual relation
// count. Used after bulk operations that bypass the increment path.
func (db *DB) RecountTagUsage(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		UPDATE tags SET usage_count = (SELECT COUNT(*) FROM file_tags WHERE tag_id = ?)
		WHERE id = ?
	`, id, id)
	if err != nil {
		return fmt.Errorf("recount tag usage: %w", err)
	}
	return nil
}

// ReassignTag moves every relation from one tag to another, skipping
// files already carrying the destination tag, then deletes the source
// tag and recounts the destination's usage.
func (db *DB) ReassignTag(keepID, removeID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin reassign tag: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO file_tags (file_id, tag_id)
		SELECT file_id, ? FROM file_tags WHERE tag_id = ?
	`, keepID, removeID); err != nil {
		return fmt.Errorf("reassign relations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM tags WHERE id = ?`, removeID); err != nil {
		return fmt.Errorf("delete merged tag: %w", err)
	}
	if _, err := tx.Exec(`
		UPDATE tags SET usage_count = (SELECT COUNT(*) FROM file_tags WHERE tag_id = ?),
			last_used_at = ?
		WHERE id = ?
	`, keepID, formatTime(time.Now()), keepID); err != nil {
		return fmt.Errorf("recount kept tag: %w", err)
	}
	return tx.Commit()
}

func prefixedTagColumns(alias string) string {
	cols := strings.Split(tagColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanTagRow(scan func(...any) error) (*Tag, error) {
	var t Tag
	var favorite int
	var parentID sql.NullString
	var created, lastUsed string
	err := scan(&t.ID, &t.Name, &t.Color, &t.UsageCount, &favorite, &parentID, &created, &lastUsed)
	if err != nil {
		return nil, err
	}
	t.IsFavorite = favorite != 0
	t.ParentID = parentID.String
	t.CreatedAt = parseTime(created)
	t.LastUsedAt = parseTime(lastUsed)
	return &t, nil
}

func scanTags(rows *sql.Rows) ([]Tag, error) {
	var tags []Tag
	for rows.Next() {
		t, err := scanTagRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

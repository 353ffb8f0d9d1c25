package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const fileColumns = `id, original_name, new_name, original_path, current_path, relative_path,
	category, subcategory, summary, notes, file_size, file_type,
	created_at, imported_at, modified_at, lifecycle_stage, last_accessed_at`

// SaveFile upserts the file row keyed by id and rewrites its complete
// tag relation set from the given list. Not incremental: callers pass
// the full desired tag set, not a delta. Usage is incremented on every
// tag newly associated by this call.
func (db *DB) SaveFile(f *File, tags []Tag) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.ImportedAt.IsZero() {
		f.ImportedAt = now
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.ModifiedAt.IsZero() {
		f.ModifiedAt = now
	}
	if f.LastAccessed.IsZero() {
		f.LastAccessed = f.ImportedAt
	}
	if f.Stage == "" {
		f.Stage = StageActive
	}
	f.RelativePath = db.relativePath(f.CurrentPath)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save file: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			original_name = excluded.original_name,
			new_name = excluded.new_name,
			original_path = excluded.original_path,
			current_path = excluded.current_path,
			relative_path = excluded.relative_path,
			category = excluded.category,
			subcategory = excluded.subcategory,
			summary = excluded.summary,
			notes = excluded.notes,
			file_size = excluded.file_size,
			file_type = excluded.file_type,
			created_at = excluded.created_at,
			imported_at = excluded.imported_at,
			modified_at = excluded.modified_at,
			lifecycle_stage = excluded.lifecycle_stage,
			last_accessed_at = excluded.last_accessed_at
	`, f.ID, f.OriginalName, f.NewName, f.OriginalPath, f.CurrentPath, f.RelativePath,
		string(f.Category), f.Subcategory, f.Summary, f.Notes, f.FileSize, f.FileType,
		formatTime(f.CreatedAt), formatTime(f.ImportedAt), formatTime(f.ModifiedAt),
		string(f.Stage), formatTime(f.LastAccessed))
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM file_tags WHERE file_id = ?`, f.ID); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}
	for _, t := range tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)`, f.ID, t.ID); err != nil {
			return fmt.Errorf("insert relation %s: %w", t.ID, err)
		}
		if _, err := tx.Exec(`
			UPDATE tags SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?
		`, formatTime(now), t.ID); err != nil {
			return fmt.Errorf("bump tag usage %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save file: %w", err)
	}
	f.Tags = tags
	return nil
}

// GetFile returns a file by id with its tag list hydrated, or nil if
// not found.
func (db *DB) GetFile(id string) (*File, error) {
	return db.getFileWhere(`id = ?`, id)
}

// GetFileByPath returns a file by its current path, or nil if not found.
func (db *DB) GetFileByPath(path string) (*File, error) {
	return db.getFileWhere(`current_path = ?`, path)
}

func (db *DB) getFileWhere(cond string, arg any) (*File, error) {
	row := db.conn.QueryRow(`SELECT `+fileColumns+` FROM files WHERE `+cond, arg)
	f, err := scanFileRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if err := db.hydrateTags(f); err != nil {
		return nil, err
	}
	return f, nil
}

// RecentFiles returns the most recently imported files, newest first.
func (db *DB) RecentFiles(limit int) ([]File, error) {
	return db.queryFiles(`
		SELECT `+fileColumns+` FROM files ORDER BY imported_at DESC LIMIT ?
	`, limit)
}

// FilesForCategory returns files in a category, newest import first.
// limit <= 0 means no limit.
func (db *DB) FilesForCategory(cat Category, limit, offset int) ([]File, error) {
	if limit <= 0 {
		limit = -1
	}
	return db.queryFiles(`
		SELECT `+fileColumns+` FROM files WHERE category = ?
		ORDER BY imported_at DESC LIMIT ? OFFSET ?
	`, string(cat), limit, offset)
}

// FilesForSubcategory returns files in a category and subcategory.
func (db *DB) FilesForSubcategory(cat Category, subcategory string) ([]File, error) {
	return db.queryFiles(`
		SELECT `+fileColumns+` FROM files WHERE category = ? AND subcategory = ?
		ORDER BY imported_at DESC
	`, string(cat), subcategory)
}

// FilesByStage returns files currently in the given lifecycle stage.
func (db *DB) FilesByStage(stage Stage) ([]File, error) {
	return db.queryFiles(`
		SELECT `+fileColumns+` FROM files WHERE lifecycle_stage = ?
		ORDER BY last_accessed_at ASC
	`, string(stage))
}

// InactiveFiles returns non-archived files not accessed within the
// given number of days, least recently accessed first.
func (db *DB) InactiveFiles(olderThanDays int) ([]File, error) {
	cutoff := formatTime(time.Now().UTC().AddDate(0, 0, -olderThanDays))
	return db.queryFiles(`
		SELECT `+fileColumns+` FROM files
		WHERE category != 'Archives' AND last_accessed_at < ?
		ORDER BY last_accessed_at ASC
	`, cutoff)
}

// SearchFiles matches the query case-insensitively against display
// name, summary, notes and associated tag names. At most 100 rows,
// newest import first. An empty category searches all categories.
func (db *DB) SearchFiles(query string, cat Category) ([]File, error) {
	pattern := "%" + query + "%"
	args := []any{pattern, pattern, pattern, pattern}
	catCond := ""
	if cat != "" {
		catCond = "AND category = ?"
		args = append(args, string(cat))
	}
	return db.queryFiles(`
		SELECT `+fileColumns+` FROM files
		WHERE (new_name LIKE ? COLLATE NOCASE
			OR summary LIKE ? COLLATE NOCASE
			OR notes LIKE ? COLLATE NOCASE
			OR id IN (
				SELECT ft.file_id FROM file_tags ft
				JOIN tags t ON t.id = ft.tag_id
				WHERE t.name LIKE ? COLLATE NOCASE
			)) `+catCond+`
		ORDER BY imported_at DESC LIMIT 100
	`, args...)
}

// CountsByCategory returns the number of files per category.
func (db *DB) CountsByCategory() (map[Category]int, error) {
	rows, err := db.conn.Query(`SELECT category, COUNT(*) FROM files GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counts by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[Category]int, len(Categories))
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Category(cat)] = n
	}
	return counts, rows.Err()
}

// DeleteFile removes the file row; relation rows and any embedding
// cascade with it. Tag rows are untouched even if they become unused.
func (db *DB) DeleteFile(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// TouchFile records an access: last_accessed_at moves to now and the
// stage resets to active regardless of its prior value.
func (db *DB) TouchFile(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		UPDATE files SET last_accessed_at = ?, lifecycle_stage = ? WHERE id = ?
	`, formatTime(time.Now()), string(StageActive), id)
	if err != nil {
		return fmt.Errorf("touch file: %w", err)
	}
	return nil
}

// MoveFileCategory changes a file's category and subcategory and bumps
// modified_at. The physical move on disk is the caller's concern.
func (db *DB) MoveFileCategory(id string, cat Category, subcategory string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		UPDATE files SET category = ?, subcategory = NULLIF(?, ''), modified_at = ? WHERE id = ?
	`, string(cat), subcategory, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("move file category: %w", err)
	}
	return nil
}

// UpdateFilePath records a completed physical move: current path,
// recomputed relative path, modified_at.
func (db *DB) UpdateFilePath(id, newPath string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		UPDATE files SET current_path = ?, relative_path = ?, modified_at = ? WHERE id = ?
	`, newPath, db.relativePath(newPath), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update file path: %w", err)
	}
	return nil
}

// SetFileStage overwrites the persisted stage cache for one file.
// Owned by the lifecycle engine; callers must not invent stages.
func (db *DB) SetFileStage(id string, stage Stage) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`UPDATE files SET lifecycle_stage = ? WHERE id = ?`, string(stage), id)
	if err != nil {
		return fmt.Errorf("set file stage: %w", err)
	}
	return nil
}

// RefreshStages re-derives every file's persisted stage in bulk:
// Archives-category files become archived unconditionally, everything
// else falls into the recency band implied by the two cutoffs.
// Returns the number of rows whose stage changed.
func (db *DB) RefreshStages(activeDays, dormantDays int, now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	activeCutoff := formatTime(now.AddDate(0, 0, -activeDays))
	dormantCutoff := formatTime(now.AddDate(0, 0, -dormantDays))

	// Timestamps share one fixed-width UTC format, so lexicographic
	// comparison in SQL is time order.
	updates := []struct {
		sql  string
		args []any
	}{
		{`UPDATE files SET lifecycle_stage = 'archived'
			WHERE category = 'Archives' AND lifecycle_stage != 'archived'`, nil},
		{`UPDATE files SET lifecycle_stage = 'active'
			WHERE category != 'Archives' AND last_accessed_at >= ? AND lifecycle_stage != 'active'`,
			[]any{activeCutoff}},
		{`UPDATE files SET lifecycle_stage = 'dormant'
			WHERE category != 'Archives' AND last_accessed_at < ? AND last_accessed_at >= ? AND lifecycle_stage != 'dormant'`,
			[]any{activeCutoff, dormantCutoff}},
		{`UPDATE files SET lifecycle_stage = 'stale'
			WHERE category != 'Archives' AND last_accessed_at < ? AND lifecycle_stage != 'stale'`,
			[]any{dormantCutoff}},
	}

	var changed int64
	for _, u := range updates {
		res, err := db.conn.Exec(u.sql, u.args...)
		if err != nil {
			return changed, fmt.Errorf("refresh stages: %w", err)
		}
		n, _ := res.RowsAffected()
		changed += n
	}
	return changed, nil
}

func (db *DB) queryFiles(query string, args ...any) ([]File, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		f, err := scanFileRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Hydrate tag lists. N+1, acceptable at this data scale.
	for i := range files {
		if err := db.hydrateTags(&files[i]); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func scanFileRow(scan func(...any) error) (*File, error) {
	var f File
	var subcategory, summary, notes sql.NullString
	var category, stage string
	var created, imported, modified, accessed string
	err := scan(&f.ID, &f.OriginalName, &f.NewName, &f.OriginalPath, &f.CurrentPath, &f.RelativePath,
		&category, &subcategory, &summary, &notes, &f.FileSize, &f.FileType,
		&created, &imported, &modified, &stage, &accessed)
	if err != nil {
		return nil, err
	}
	f.Category = Category(category)
	f.Stage = Stage(stage)
	f.Subcategory = subcategory.String
	f.Summary = summary.String
	f.Notes = notes.String
	f.CreatedAt = parseTime(created)
	f.ImportedAt = parseTime(imported)
	f.ModifiedAt = parseTime(modified)
	f.LastAccessed = parseTime(accessed)
	return &f, nil
}

func (db *DB) hydrateTags(f *File) error {
	tags, err := db.TagsForFile(f.ID)
	if err != nil {
		return err
	}
	f.Tags = tags
	return nil
}

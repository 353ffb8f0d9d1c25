package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSubcategory creates a folder label under a category, optionally
// nested under a parent subcategory. Returns the existing row when the
// (name, category, parent) triple already exists.
func (db *DB) CreateSubcategory(name string, cat Category, parentID string) (*Subcategory, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Top-level rows store '' for the parent, never NULL, so the
	// UNIQUE triple binds and the conflict clause fires on duplicates.
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO subcategories (id, name, parent_category, parent_subcategory_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name, parent_category, parent_subcategory_id) DO NOTHING
	`, uuid.NewString(), name, string(cat), parentID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create subcategory: %w", err)
	}

	row := db.conn.QueryRow(`
		SELECT id, name, parent_category, parent_subcategory_id, created_at
		FROM subcategories
		WHERE name = ? AND parent_category = ? AND parent_subcategory_id = ?
	`, name, string(cat), parentID)
	return scanSubcategoryRow(row.Scan)
}

// SubcategoriesForCategory returns the folder labels under a category,
// by name.
func (db *DB) SubcategoriesForCategory(cat Category) ([]Subcategory, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, parent_category, parent_subcategory_id, created_at
		FROM subcategories WHERE parent_category = ?
		ORDER BY name
	`, string(cat))
	if err != nil {
		return nil, fmt.Errorf("subcategories for category: %w", err)
	}
	defer rows.Close()

	var subs []Subcategory
	for rows.Next() {
		s, err := scanSubcategoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// DeleteSubcategory removes a folder label. Files keep their free-text
// subcategory value; the label is display metadata, not a constraint.
func (db *DB) DeleteSubcategory(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`DELETE FROM subcategories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	return nil
}

// SubcategoryParents returns the nesting as an id -> parent id map.
// Acyclicity is not schema-enforced; walkers bound their depth.
func (db *DB) SubcategoryParents() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, parent_subcategory_id FROM subcategories WHERE parent_subcategory_id != ''`)
	if err != nil {
		return nil, fmt.Errorf("subcategory parents: %w", err)
	}
	defer rows.Close()

	parents := make(map[string]string)
	for rows.Next() {
		var id, parent string
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, fmt.Errorf("scan subcategory parent: %w", err)
		}
		parents[id] = parent
	}
	return parents, rows.Err()
}

func scanSubcategoryRow(scan func(...any) error) (*Subcategory, error) {
	var s Subcategory
	var cat, created string
	if err := scan(&s.ID, &s.Name, &cat, &s.ParentID, &created); err != nil {
		return nil, err
	}
	s.ParentCategory = Category(cat)
	s.CreatedAt = parseTime(created)
	return &s, nil
}

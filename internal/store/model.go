package store

import "time"

// Category is one of the four PARA folder categories files sort into.
type Category string

const (
	CategoryProjects  Category = "Projects"
	CategoryAreas     Category = "Areas"
	CategoryResources Category = "Resources"
	CategoryArchives  Category = "Archives"
)

// Categories lists all categories in display order.
var Categories = []Category{CategoryProjects, CategoryAreas, CategoryResources, CategoryArchives}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryProjects, CategoryAreas, CategoryResources, CategoryArchives:
		return true
	}
	return false
}

// Stage classifies a file's activity level. It is derived from access
// recency and category, never set independently.
type Stage string

const (
	StageActive   Stage = "active"
	StageDormant  Stage = "dormant"
	StageStale    Stage = "stale"
	StageArchived Stage = "archived"
)

// File is one managed file's metadata row.
type File struct {
	ID           string
	OriginalName string
	NewName      string
	OriginalPath string
	CurrentPath  string
	RelativePath string
	Category     Category
	Subcategory  string
	Summary      string
	Notes        string
	FileSize     int64
	FileType     string
	CreatedAt    time.Time
	ImportedAt   time.Time
	ModifiedAt   time.Time
	Stage        Stage
	LastAccessed time.Time

	Tags []Tag
}

// Tag is a user-defined label attached to files through a many-to-many
// relation. UsageCount is advisory: bulk operations do not always pass
// through the increment/decrement path.
type Tag struct {
	ID         string
	Name       string
	Color      string
	UsageCount int
	IsFavorite bool
	ParentID   string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Subcategory is a free-text folder label nested under a category.
// Names are unique per (name, category, parent).
type Subcategory struct {
	ID             string
	Name           string
	ParentCategory Category
	ParentID       string
	CreatedAt      time.Time
}

// Transition is one immutable row of the category-move audit trail.
// FileName is a snapshot so history survives file deletion.
type Transition struct {
	ID              string
	FileID          string
	FileName        string
	FromCategory    Category
	ToCategory      Category
	FromSubcategory string
	ToSubcategory   string
	Reason          Reason
	Notes           string
	TriggeredAt     time.Time
	IsAutomatic     bool
	ConfirmedByUser bool
}

package store

import "testing"

func TestCreateSubcategory(t *testing.T) {
	db := testDB(t)

	sub, err := db.CreateSubcategory("thesis", CategoryProjects, "")
	if err != nil {
		t.Fatalf("CreateSubcategory: %v", err)
	}
	if sub.ID == "" || sub.Name != "thesis" || sub.ParentCategory != CategoryProjects {
		t.Errorf("sub = %+v", sub)
	}

	// Same triple returns the existing row.
	again, err := db.CreateSubcategory("thesis", CategoryProjects, "")
	if err != nil {
		t.Fatalf("duplicate CreateSubcategory: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("duplicate created new id %s, want %s", again.ID, sub.ID)
	}
}

func TestCreateSubcategoryDuplicateInsertsNoRow(t *testing.T) {
	db := testDB(t)

	sub, err := db.CreateSubcategory("thesis", CategoryProjects, "")
	if err != nil {
		t.Fatalf("CreateSubcategory: %v", err)
	}
	if _, err := db.CreateSubcategory("thesis", CategoryProjects, ""); err != nil {
		t.Fatalf("duplicate CreateSubcategory: %v", err)
	}

	// Top-level rows must collapse on the UNIQUE triple, not just
	// return the oldest row while duplicates pile up underneath.
	var n int
	err = db.conn.QueryRow(`
		SELECT COUNT(*) FROM subcategories WHERE name = ? AND parent_category = ?
	`, "thesis", string(CategoryProjects)).Scan(&n)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows for identical top-level triple = %d, want 1", n)
	}

	subs, _ := db.SubcategoriesForCategory(CategoryProjects)
	if len(subs) != 1 {
		t.Errorf("SubcategoriesForCategory = %d rows, want 1", len(subs))
	}

	// Nested duplicates collapse the same way.
	db.CreateSubcategory("drafts", CategoryProjects, sub.ID)
	db.CreateSubcategory("drafts", CategoryProjects, sub.ID)
	err = db.conn.QueryRow(`SELECT COUNT(*) FROM subcategories WHERE name = 'drafts'`).Scan(&n)
	if err != nil {
		t.Fatalf("count nested: %v", err)
	}
	if n != 1 {
		t.Errorf("rows for identical nested triple = %d, want 1", n)
	}
}

func TestSubcategoryNameRepeatsAcrossScopes(t *testing.T) {
	db := testDB(t)

	a, _ := db.CreateSubcategory("notes", CategoryProjects, "")
	// Same name under a different category is a distinct row.
	b, err := db.CreateSubcategory("notes", CategoryAreas, "")
	if err != nil {
		t.Fatalf("cross-category: %v", err)
	}
	if b.ID == a.ID {
		t.Error("expected distinct subcategory per category")
	}

	// Same name nested under a parent is also distinct.
	c, err := db.CreateSubcategory("notes", CategoryProjects, a.ID)
	if err != nil {
		t.Fatalf("nested: %v", err)
	}
	if c.ID == a.ID {
		t.Error("expected distinct subcategory per parent")
	}

	parents, _ := db.SubcategoryParents()
	if parents[c.ID] != a.ID {
		t.Errorf("adjacency = %v", parents)
	}
}

func TestSubcategoriesForCategory(t *testing.T) {
	db := testDB(t)
	db.CreateSubcategory("zeta", CategoryResources, "")
	db.CreateSubcategory("alpha", CategoryResources, "")
	db.CreateSubcategory("other", CategoryAreas, "")

	subs, err := db.SubcategoriesForCategory(CategoryResources)
	if err != nil {
		t.Fatalf("SubcategoriesForCategory: %v", err)
	}
	if len(subs) != 2 || subs[0].Name != "alpha" {
		t.Errorf("subs = %v, want [alpha zeta]", subs)
	}
}

func TestDeleteSubcategory(t *testing.T) {
	db := testDB(t)
	sub, _ := db.CreateSubcategory("temp", CategoryProjects, "")
	if err := db.DeleteSubcategory(sub.ID); err != nil {
		t.Fatalf("DeleteSubcategory: %v", err)
	}
	subs, _ := db.SubcategoriesForCategory(CategoryProjects)
	if len(subs) != 0 {
		t.Errorf("subs = %v, want empty", subs)
	}
}

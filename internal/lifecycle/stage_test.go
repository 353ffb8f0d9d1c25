package lifecycle

import (
	"testing"
	"time"

	"fileflow/internal/store"
)

func TestDeriveStage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		daysAgo  int
		category store.Category
		want     store.Stage
	}{
		{"just accessed", 0, store.CategoryProjects, store.StageActive},
		{"ten days", 10, store.CategoryProjects, store.StageActive},
		{"band edge 29", 29, store.CategoryAreas, store.StageActive},
		{"band edge 30", 30, store.CategoryAreas, store.StageDormant},
		{"forty-five days", 45, store.CategoryResources, store.StageDormant},
		{"band edge 89", 89, store.CategoryResources, store.StageDormant},
		{"band edge 90", 90, store.CategoryProjects, store.StageStale},
		{"two hundred days", 200, store.CategoryProjects, store.StageStale},
		{"archives overrides fresh", 0, store.CategoryArchives, store.StageArchived},
		{"archives overrides stale", 500, store.CategoryArchives, store.StageArchived},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			last := now.AddDate(0, 0, -c.daysAgo)
			got := DeriveStage(last, c.category, now)
			if got != c.want {
				t.Errorf("DeriveStage(-%dd, %s) = %q, want %q", c.daysAgo, c.category, got, c.want)
			}
		})
	}
}

func TestDeriveStageClockSkew(t *testing.T) {
	now := time.Now()
	// A last-access in the future must not panic or go stale.
	got := DeriveStage(now.Add(48*time.Hour), store.CategoryProjects, now)
	if got != store.StageActive {
		t.Errorf("future access = %q, want active", got)
	}
}

func TestDeriveStageCustomBands(t *testing.T) {
	now := time.Now()
	b := Bands{ActiveDays: 7, DormantDays: 14}

	if got := DeriveStageBands(now.AddDate(0, 0, -10), store.CategoryProjects, now, b); got != store.StageDormant {
		t.Errorf("10d with 7/14 bands = %q, want dormant", got)
	}
	if got := DeriveStageBands(now.AddDate(0, 0, -20), store.CategoryProjects, now, b); got != store.StageStale {
		t.Errorf("20d with 7/14 bands = %q, want stale", got)
	}
}

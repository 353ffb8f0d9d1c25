package lifecycle

import (
	"time"

	"fileflow/internal/store"
)

// Bands holds the recency thresholds, in days, separating the
// non-archived stages.
type Bands struct {
	ActiveDays  int // accessed within this many days: active
	DormantDays int // within this many days: dormant; beyond: stale
}

// DefaultBands is the standard 30/90-day banding.
var DefaultBands = Bands{ActiveDays: 30, DormantDays: 90}

// DeriveStage is the single derivation rule for a file's lifecycle
// stage. Archives-category files are archived unconditionally;
// everything else falls into the band implied by days since last
// access. The persisted lifecycle_stage column is a cache of this
// function, never an independent source of truth.
func DeriveStage(lastAccessed time.Time, category store.Category, now time.Time) store.Stage {
	return DeriveStageBands(lastAccessed, category, now, DefaultBands)
}

// DeriveStageBands is DeriveStage with explicit thresholds.
func DeriveStageBands(lastAccessed time.Time, category store.Category, now time.Time, b Bands) store.Stage {
	if category == store.CategoryArchives {
		return store.StageArchived
	}
	days := int(now.Sub(lastAccessed).Hours() / 24)
	switch {
	case days < b.ActiveDays: // negative elapsed (clock skew) lands here
		return store.StageActive
	case days < b.DormantDays:
		return store.StageDormant
	default:
		return store.StageStale
	}
}

// daysSince returns whole days elapsed between then and now, floored
// at zero.
func daysSince(then, now time.Time) int {
	d := int(now.Sub(then).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

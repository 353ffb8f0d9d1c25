// Package lifecycle keeps each file's persisted stage consistent with
// its access recency and category, and surfaces cleanup suggestions.
package lifecycle

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"fileflow/internal/store"
)

// DefaultRefreshInterval is how often the background recomputation
// pass runs.
const DefaultRefreshInterval = 30 * time.Minute

// DefaultArchiveAfterDays is the staleness threshold past which a
// cleanup suggestion escalates from review to archive.
const DefaultArchiveAfterDays = 180

// Action is what a cleanup suggestion proposes for a file.
type Action string

const (
	ActionKeep    Action = "keep"
	ActionReview  Action = "review"
	ActionArchive Action = "archive"
)

// Suggestion pairs a file with a proposed cleanup action.
type Suggestion struct {
	File       store.File
	Stage      store.Stage
	DaysUnused int
	Action     Action
}

// MoveFunc performs the physical move of a file into the Archives
// folder and returns its new path. Optional: a nil mover archives
// metadata only.
type MoveFunc func(f store.File) (string, error)

// ArchiveFailure records one file a batch archive could not process.
type ArchiveFailure struct {
	FileID string
	Err    error
}

// BatchResult summarizes a batch archive pass. Failures never abort
// the rest of the batch.
type BatchResult struct {
	Archived int
	Failures []ArchiveFailure
}

// Engine derives lifecycle stages and runs the periodic refresh.
type Engine struct {
	DB    *store.DB
	Bands Bands

	refresh  singleflight.Group
	interval time.Duration
	stopCh   chan struct{}
}

// New creates a lifecycle engine with default bands and interval.
func New(db *store.DB) *Engine {
	return &Engine{
		DB:       db,
		Bands:    DefaultBands,
		interval: DefaultRefreshInterval,
		stopCh:   make(chan struct{}),
	}
}

// SetInterval overrides the background refresh cadence. Call before
// Start.
func (e *Engine) SetInterval(d time.Duration) {
	if d > 0 {
		e.interval = d
	}
}

// RefreshAll re-derives every file's persisted stage in bulk.
// Concurrent calls coalesce: a second caller while a pass is in flight
// shares the first pass's result instead of running a rival pass.
// Returns the number of rows whose stage changed.
func (e *Engine) RefreshAll() (int64, error) {
	v, err, _ := e.refresh.Do("refresh", func() (any, error) {
		return e.DB.RefreshStages(e.Bands.ActiveDays, e.Bands.DormantDays, time.Now().UTC())
	})
	if err != nil {
		return 0, fmt.Errorf("refresh stages: %w", err)
	}
	return v.(int64), nil
}

// Touch models "the user opened the file": last access moves to now
// and the stage snaps back to active regardless of where it was.
func (e *Engine) Touch(fileID string) error {
	return e.DB.TouchFile(fileID)
}

// Start runs a refresh pass immediately and then periodically until
// Stop.
func (e *Engine) Start() {
	if n, err := e.RefreshAll(); err != nil {
		log.Printf("lifecycle: refresh error: %v", err)
	} else if n > 0 {
		log.Printf("lifecycle: refreshed %d stages", n)
	}

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n, err := e.RefreshAll(); err != nil {
					log.Printf("lifecycle: refresh error: %v", err)
				} else if n > 0 {
					log.Printf("lifecycle: refreshed %d stages", n)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the background refresh goroutine.
func (e *Engine) Stop() {
	close(e.stopCh)
}

// CleanupSuggestions maps every non-active file to a suggested action:
// stale past the archive threshold suggests archive, other stale and
// all dormant files suggest review, archived files suggest keep.
// Recomputed on demand from current data, never cached.
func (e *Engine) CleanupSuggestions(archiveAfterDays int) ([]Suggestion, error) {
	if archiveAfterDays <= 0 {
		archiveAfterDays = DefaultArchiveAfterDays
	}
	now := time.Now().UTC()

	var suggestions []Suggestion
	for _, stage := range []store.Stage{store.StageDormant, store.StageStale, store.StageArchived} {
		files, err := e.DB.FilesByStage(stage)
		if err != nil {
			return nil, fmt.Errorf("files by stage %s: %w", stage, err)
		}
		for _, f := range files {
			days := daysSince(f.LastAccessed, now)
			action := ActionReview
			switch {
			case stage == store.StageArchived:
				action = ActionKeep
			case stage == store.StageStale && days >= archiveAfterDays:
				action = ActionArchive
			}
			suggestions = append(suggestions, Suggestion{
				File:       f,
				Stage:      stage,
				DaysUnused: days,
				Action:     action,
			})
		}
	}
	return suggestions, nil
}

// BatchArchiveStale moves the given files into Archives: optional
// physical move, category change, a ledger transition (reason defaults
// to inactivity_timeout), and the archived stage. One file's failure
// is recorded and the batch continues.
func (e *Engine) BatchArchiveStale(files []store.File, reason store.Reason, move MoveFunc) BatchResult {
	if reason == "" {
		reason = store.ReasonInactivityTimeout
	}

	var res BatchResult
	for _, f := range files {
		if f.Category == store.CategoryArchives {
			continue
		}
		fromCat, fromSub := f.Category, f.Subcategory

		if move != nil {
			newPath, err := move(f)
			if err != nil {
				log.Printf("lifecycle: archive move %s: %v", f.CurrentPath, err)
				res.Failures = append(res.Failures, ArchiveFailure{FileID: f.ID, Err: err})
				continue
			}
			if err := e.DB.UpdateFilePath(f.ID, newPath); err != nil {
				res.Failures = append(res.Failures, ArchiveFailure{FileID: f.ID, Err: err})
				continue
			}
		}
		if err := e.DB.MoveFileCategory(f.ID, store.CategoryArchives, ""); err != nil {
			res.Failures = append(res.Failures, ArchiveFailure{FileID: f.ID, Err: err})
			continue
		}
		if err := e.DB.SetFileStage(f.ID, store.StageArchived); err != nil {
			res.Failures = append(res.Failures, ArchiveFailure{FileID: f.ID, Err: err})
			continue
		}

		tr := &store.Transition{
			FileID:          f.ID,
			FileName:        f.NewName,
			FromCategory:    fromCat,
			ToCategory:      store.CategoryArchives,
			FromSubcategory: fromSub,
			Reason:          reason,
			IsAutomatic:     true,
		}
		if err := e.DB.RecordTransition(tr); err != nil {
			log.Printf("lifecycle: record transition for %s: %v", f.ID, err)
		}
		res.Archived++
	}
	return res
}

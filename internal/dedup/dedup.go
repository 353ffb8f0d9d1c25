// Package dedup surfaces and resolves near-duplicate tags created by
// free-text entry ("AI" vs "Ai" vs "A.I.").
package dedup

import (
	"fmt"
	"sort"

	"fileflow/internal/store"
)

// DefaultThreshold is the similarity floor below which a tag pair is
// not considered a duplicate candidate.
const DefaultThreshold = 0.7

// Pair is one candidate duplicate: two tags and their similarity score.
// Pairs identical after case folding still appear, at 1.0; callers
// filter true duplicates from near-duplicates if they care.
type Pair struct {
	A          store.Tag
	B          store.Tag
	Similarity float64
}

// Engine detects and merges near-duplicate tags through the store.
type Engine struct {
	DB *store.DB
}

// New creates a dedup engine over the given store.
func New(db *store.DB) *Engine {
	return &Engine{DB: db}
}

// FindSimilarPairs scores every unordered pair of existing tags and
// returns those at or above the threshold, highest similarity first.
// A negative threshold selects DefaultThreshold; zero is a valid floor
// and returns every pair. O(n^2) over the tag vocabulary; fine for
// vocabularies in the low thousands.
func (e *Engine) FindSimilarPairs(threshold float64) ([]Pair, error) {
	if threshold < 0 {
		threshold = DefaultThreshold
	}

	tags, err := e.DB.AllTags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	var pairs []Pair
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			sim := Similarity(tags[i].Name, tags[j].Name)
			if sim >= threshold {
				pairs = append(pairs, Pair{A: tags[i], B: tags[j], Similarity: sim})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs, nil
}

// MergeTags re-associates every file tagged remove with keep, then
// deletes remove. Idempotent for files already carrying keep. Which tag
// survives is caller policy (by convention the higher usage count);
// this merely executes the given pair.
func (e *Engine) MergeTags(keepID, removeID string) error {
	if keepID == removeID {
		return fmt.Errorf("merge tags: keep and remove are the same tag")
	}
	keep, err := e.DB.GetTag(keepID)
	if err != nil {
		return err
	}
	if keep == nil {
		return fmt.Errorf("merge tags: no tag with id %s", keepID)
	}
	remove, err := e.DB.GetTag(removeID)
	if err != nil {
		return err
	}
	if remove == nil {
		return fmt.Errorf("merge tags: no tag with id %s", removeID)
	}

	if err := e.DB.ReassignTag(keepID, removeID); err != nil {
		return fmt.Errorf("merge %q into %q: %w", remove.Name, keep.Name, err)
	}
	return nil
}

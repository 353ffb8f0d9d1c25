package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fileflow/internal/dedup"
	"fileflow/internal/store"
)

type fileJSON struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	NewName      string    `json:"new_name"`
	OriginalPath string    `json:"original_path"`
	CurrentPath  string    `json:"current_path"`
	RelativePath string    `json:"relative_path"`
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	FileSize     int64     `json:"file_size"`
	FileType     string    `json:"file_type"`
	CreatedAt    time.Time `json:"created_at"`
	ImportedAt   time.Time `json:"imported_at"`
	ModifiedAt   time.Time `json:"modified_at"`
	Stage        string    `json:"lifecycle_stage"`
	LastAccessed time.Time `json:"last_accessed_at"`
	Tags         []tagJSON `json:"tags"`
}

type tagJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	UsageCount int    `json:"usage_count"`
	IsFavorite bool   `json:"is_favorite"`
	ParentID   string `json:"parent_id,omitempty"`
}

func toFileJSON(f store.File) fileJSON {
	out := fileJSON{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		NewName:      f.NewName,
		OriginalPath: f.OriginalPath,
		CurrentPath:  f.CurrentPath,
		RelativePath: f.RelativePath,
		Category:     string(f.Category),
		Subcategory:  f.Subcategory,
		Summary:      f.Summary,
		Notes:        f.Notes,
		FileSize:     f.FileSize,
		FileType:     f.FileType,
		CreatedAt:    f.CreatedAt,
		ImportedAt:   f.ImportedAt,
		ModifiedAt:   f.ModifiedAt,
		Stage:        string(f.Stage),
		LastAccessed: f.LastAccessed,
		Tags:         []tagJSON{},
	}
	for _, t := range f.Tags {
		out.Tags = append(out.Tags, toTagJSON(t))
	}
	return out
}

func toTagJSON(t store.Tag) tagJSON {
	return tagJSON{
		ID:         t.ID,
		Name:       t.Name,
		Color:      t.Color,
		UsageCount: t.UsageCount,
		IsFavorite: t.IsFavorite,
		ParentID:   t.ParentID,
	}
}

func filesResponse(w http.ResponseWriter, files []store.File) {
	out := make([]fileJSON, 0, len(files))
	for _, f := range files {
		out = append(out, toFileJSON(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "files": out})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// handleListFiles dispatches on query params: ?q= searches, ?stage=
// filters by lifecycle stage, ?category= (with optional ?subcategory=)
// lists a folder, otherwise recent imports.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat := store.Category(q.Get("category"))

	var (
		files []store.File
		err   error
	)
	switch {
	case q.Get("q") != "":
		files, err = s.db.SearchFiles(q.Get("q"), cat)
	case q.Get("stage") != "":
		files, err = s.db.FilesByStage(store.Stage(q.Get("stage")))
	case cat != "" && q.Get("subcategory") != "":
		files, err = s.db.FilesForSubcategory(cat, q.Get("subcategory"))
	case cat != "":
		files, err = s.db.FilesForCategory(cat, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	default:
		files, err = s.db.RecentFiles(queryInt(r, "limit", 50))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	filesResponse(w, files)
}

func (s *Server) handleSaveFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		fileJSON
		TagNames []string `json:"tag_names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cat := store.Category(req.Category)
	if !cat.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	var tags []store.Tag
	for _, name := range req.TagNames {
		t, err := s.db.CreateTag(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		tags = append(tags, *t)
	}

	f := store.File{
		ID:           req.ID,
		OriginalName: req.OriginalName,
		NewName:      req.NewName,
		OriginalPath: req.OriginalPath,
		CurrentPath:  req.CurrentPath,
		Category:     cat,
		Subcategory:  req.Subcategory,
		Summary:      req.Summary,
		Notes:        req.Notes,
		FileSize:     req.FileSize,
		FileType:     req.FileType,
		CreatedAt:    req.CreatedAt,
		ImportedAt:   req.ImportedAt,
		ModifiedAt:   req.ModifiedAt,
		Stage:        store.Stage(req.Stage),
		LastAccessed: req.LastAccessed,
	}
	if err := s.db.SaveFile(&f, tags); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := s.db.GetFile(f.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "save readback failed")
		return
	}
	writeJSON(w, http.StatusCreated, toFileJSON(*saved))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.db.GetFile(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, toFileJSON(*f))
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteFile(chi.URLParam(r, "fileID")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleTouchFile(w http.ResponseWriter, r *http.Request) {
	if err := s.life.Touch(chi.URLParam(r, "fileID")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "touched"})
}

func (s *Server) handleAddFileTag(w http.ResponseWriter, r *http.Request) {
	err := s.db.AddTagToFile(chi.URLParam(r, "fileID"), chi.URLParam(r, "tagID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "tagged"})
}

func (s *Server) handleRemoveFileTag(w http.ResponseWriter, r *http.Request) {
	err := s.db.RemoveTagFromFile(chi.URLParam(r, "fileID"), chi.URLParam(r, "tagID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "untagged"})
}

func (s *Server) handleSaveEmbedding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vector   []float32 `json:"vector"`
		Provider string    `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Vector) == 0 {
		writeError(w, http.StatusBadRequest, "vector required")
		return
	}
	if err := s.db.SaveEmbedding(chi.URLParam(r, "fileID"), req.Vector, req.Provider); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "stored", "dimensions": len(req.Vector)})
}

func (s *Server) handleGetEmbedding(w http.ResponseWriter, r *http.Request) {
	e, err := s.db.GetEmbedding(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "no embedding")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_id":    e.FileID,
		"vector":     e.Vector,
		"provider":   e.Provider,
		"dimensions": len(e.Vector),
	})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.db.AllTags()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]tagJSON, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagJSON(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "tags": out})
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	t, err := s.db.CreateTag(req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toTagJSON(*t))
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteTag(chi.URLParam(r, "tagID")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRenameTag renames a tag and rewrites #tag markers on disk.
// A partial filesystem failure still commits the logical rename; the
// response carries the paths that could not be rewritten.
func (s *Server) handleRenameTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	err := s.db.RenameTag(chi.URLParam(r, "tagID"), req.Name)
	var re *store.RenameError
	if errors.As(err, &re) {
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"status": "renamed",
			"failed": re.Failed,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleSimilarTags(w http.ResponseWriter, r *http.Request) {
	threshold := dedup.DefaultThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			threshold = f
		}
	}

	pairs, err := s.tags.FindSimilarPairs(threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type pairJSON struct {
		A          tagJSON `json:"a"`
		B          tagJSON `json:"b"`
		Similarity float64 `json:"similarity"`
	}
	out := make([]pairJSON, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairJSON{A: toTagJSON(p.A), B: toTagJSON(p.B), Similarity: p.Similarity})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "pairs": out})
}

func (s *Server) handleMergeTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		KeepID   string `json:"keep_id"`
		RemoveID string `json:"remove_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.KeepID == "" || req.RemoveID == "" {
		writeError(w, http.StatusBadRequest, "keep_id and remove_id required")
		return
	}
	if err := s.tags.MergeTags(req.KeepID, req.RemoveID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "merged"})
}

func (s *Server) handleListSubcategories(w http.ResponseWriter, r *http.Request) {
	cat := store.Category(r.URL.Query().Get("category"))
	if !cat.Valid() {
		writeError(w, http.StatusBadRequest, "category required")
		return
	}
	subs, err := s.db.SubcategoriesForCategory(cat)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type subJSON struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
		ParentID string `json:"parent_id,omitempty"`
	}
	out := make([]subJSON, 0, len(subs))
	for _, sc := range subs {
		out = append(out, subJSON{ID: sc.ID, Name: sc.Name, Category: string(sc.ParentCategory), ParentID: sc.ParentID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "subcategories": out})
}

func (s *Server) handleCreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cat := store.Category(req.Category)
	if req.Name == "" || !cat.Valid() {
		writeError(w, http.StatusBadRequest, "name and category required")
		return
	}
	sub, err := s.db.CreateSubcategory(req.Name, cat, req.ParentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sub.ID, "name": sub.Name})
}

type transitionJSON struct {
	ID              string    `json:"id"`
	FileID          string    `json:"file_id"`
	FileName        string    `json:"file_name"`
	FromCategory    string    `json:"from_category"`
	ToCategory      string    `json:"to_category"`
	FromSubcategory string    `json:"from_subcategory,omitempty"`
	ToSubcategory   string    `json:"to_subcategory,omitempty"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
	TriggeredAt     time.Time `json:"triggered_at"`
	IsAutomatic     bool      `json:"is_automatic"`
	ConfirmedByUser bool      `json:"confirmed_by_user"`
}

func toTransitionJSON(t store.Transition) transitionJSON {
	return transitionJSON{
		ID:              t.ID,
		FileID:          t.FileID,
		FileName:        t.FileName,
		FromCategory:    string(t.FromCategory),
		ToCategory:      string(t.ToCategory),
		FromSubcategory: t.FromSubcategory,
		ToSubcategory:   t.ToSubcategory,
		Reason:          string(t.Reason),
		Notes:           t.Notes,
		TriggeredAt:     t.TriggeredAt,
		IsAutomatic:     t.IsAutomatic,
		ConfirmedByUser: t.ConfirmedByUser,
	}
}

func (s *Server) handleFileTransitions(w http.ResponseWriter, r *http.Request) {
	transitions, err := s.db.TransitionsForFile(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]transitionJSON, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, toTransitionJSON(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "transitions": out})
}

func (s *Server) handleRecentTransitions(w http.ResponseWriter, r *http.Request) {
	transitions, err := s.db.RecentTransitions(queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]transitionJSON, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, toTransitionJSON(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "transitions": out})
}

func (s *Server) handleSuggestedReasons(w http.ResponseWriter, r *http.Request) {
	from := store.Category(r.URL.Query().Get("from"))
	to := store.Category(r.URL.Query().Get("to"))
	if !from.Valid() || !to.Valid() {
		writeError(w, http.StatusBadRequest, "from and to categories required")
		return
	}
	reasons := store.SuggestedReasons(from, to)
	out := make([]string, len(reasons))
	for i, rn := range reasons {
		out[i] = string(rn)
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "reasons": out})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.life.RefreshAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "changed": n})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.life.CleanupSuggestions(queryInt(r, "archive_after_days", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type suggestionJSON struct {
		File       fileJSON `json:"file"`
		Stage      string   `json:"stage"`
		DaysUnused int      `json:"days_unused"`
		Action     string   `json:"action"`
	}
	out := make([]suggestionJSON, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, suggestionJSON{
			File:       toFileJSON(sg.File),
			Stage:      string(sg.Stage),
			DaysUnused: sg.DaysUnused,
			Action:     string(sg.Action),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "suggestions": out})
}

// handleBatchArchive archives the given files (or, with no body ids,
// every stale file). Partial failures are reported, not fatal.
func (s *Server) handleBatchArchive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileIDs []string `json:"file_ids"`
		Reason  string   `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var files []store.File
	if len(req.FileIDs) == 0 {
		var err error
		files, err = s.db.FilesByStage(store.StageStale)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		for _, id := range req.FileIDs {
			f, err := s.db.GetFile(id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if f == nil {
				continue
			}
			files = append(files, *f)
		}
	}

	res := s.life.BatchArchiveStale(files, store.Reason(req.Reason), nil)

	failures := make([]map[string]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, map[string]string{"file_id": f.FileID, "error": f.Err.Error()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"archived": res.Archived,
		"failures": failures,
	})
}

// Package server exposes the metadata store and engines over a JSON
// HTTP API for the thin consumers (drag-and-drop UI, search, graph).
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fileflow/internal/dedup"
	"fileflow/internal/lifecycle"
	"fileflow/internal/store"
)

// Server is the fileflow HTTP API server.
type Server struct {
	db      *store.DB
	life    *lifecycle.Engine
	tags    *dedup.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server over the given store and engines.
func New(db *store.DB, life *lifecycle.Engine, tags *dedup.Engine, version string) *Server {
	s := &Server{
		db:      db,
		life:    life,
		tags:    tags,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Post("/", s.handleSaveFile)
			r.Get("/{fileID}", s.handleGetFile)
			r.Delete("/{fileID}", s.handleDeleteFile)
			r.Post("/{fileID}/touch", s.handleTouchFile)
			r.Put("/{fileID}/tags/{tagID}", s.handleAddFileTag)
			r.Delete("/{fileID}/tags/{tagID}", s.handleRemoveFileTag)
			r.Put("/{fileID}/embedding", s.handleSaveEmbedding)
			r.Get("/{fileID}/embedding", s.handleGetEmbedding)
			r.Get("/{fileID}/transitions", s.handleFileTransitions)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Post("/", s.handleCreateTag)
			r.Get("/similar", s.handleSimilarTags)
			r.Post("/merge", s.handleMergeTags)
			r.Delete("/{tagID}", s.handleDeleteTag)
			r.Post("/{tagID}/rename", s.handleRenameTag)
		})

		r.Route("/subcategories", func(r chi.Router) {
			r.Get("/", s.handleListSubcategories)
			r.Post("/", s.handleCreateSubcategory)
		})

		r.Route("/transitions", func(r chi.Router) {
			r.Get("/", s.handleRecentTransitions)
			r.Get("/reasons", s.handleSuggestedReasons)
		})

		r.Route("/lifecycle", func(r chi.Router) {
			r.Post("/refresh", s.handleRefresh)
			r.Get("/suggestions", s.handleSuggestions)
			r.Post("/archive", s.handleBatchArchive)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the recipe catalog over a read-only JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pdiddy/cookbook/internal/catalog"
	"github.com/pdiddy/cookbook/internal/logging"
	"github.com/pdiddy/cookbook/internal/recipe"
	"github.com/pdiddy/cookbook/pkg/types"
)

// Catalog is the subset of the catalog store the API reads from.
type Catalog interface {
	Search(ctx context.Context, opts catalog.QueryOptions) ([]catalog.Entry, error)
	Get(ctx context.Context, id string) (*catalog.Entry, error)
	Count(ctx context.Context) (int, error)
}

// Server serves the catalog API.
type Server struct {
	store Catalog
	cfg   types.ServeConfig
	log   logging.Logger
}

// New creates a Server reading from store.
func New(store Catalog, cfg types.ServeConfig, log logging.Logger) *Server {
	return &Server{store: store, cfg: cfg, log: logging.OrNop(log)}
}

// recipeSummary is one search hit; the full recipe comes from /api/recipes/{id}.
type recipeSummary struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Path  string   `json:"path"`
	Tags  []string `json:"tags,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	// Routes live on the root router so a method mismatch reports 405.
	r.HandleFunc("/api/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/api/recipes", s.listRecipes).Methods(http.MethodGet)
	r.HandleFunc("/api/recipes/{id}", s.getRecipe).Methods(http.MethodGet)
	r.HandleFunc("/api/recipes/{id}/markdown", s.getMarkdown).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("%s not allowed: the catalog API is read-only", req.Method))
	})

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("catalog API listening", "addr", s.cfg.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Count(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "recipes": n})
}

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := catalog.QueryOptions{
		Query:       strings.TrimSpace(q.Get("q")),
		Tags:        nonEmpty(q["tag"]),
		Ingredients: nonEmpty(q["ingredient"]),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		opts.MaxResults = n
	}

	entries, err := s.store.Search(r.Context(), opts)
	if err != nil {
		// Malformed FTS5 syntax surfaces here.
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	out := make([]recipeSummary, len(entries))
	for i, e := range entries {
		out[i] = recipeSummary{ID: e.ID, Title: e.Title, Path: e.Path, Tags: e.Tags}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) getMarkdown(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	md, err := recipe.Render(e.Recipe)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*catalog.Entry, bool) {
	id := mux.Vars(r)["id"]
	e, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
		return nil, false
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return e, true
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("catalog API error", "status", status, "error", err)
	} else {
		s.log.Debug("catalog API request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

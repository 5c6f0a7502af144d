// Package server exposes the record store over a local HTTP API. It is glue
// over the store and scheduler; no pipeline logic lives here.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/export"
	"github.com/linkhoard/linkhoard/internal/importer"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/scheduler"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Server serves the local bookmark API.
type Server struct {
	http  *http.Server
	store *store.Store
	sched *scheduler.Scheduler

	// runMu ensures at most one scheduler run is active; HTTP imports and
	// retries kick the queue asynchronously.
	runMu   sync.Mutex
	running bool
}

// New builds the HTTP server. sched may be nil to disable automatic
// processing of imported records.
func New(port int, st *store.Store, sched *scheduler.Scheduler) *Server {
	s := &Server{store: st, sched: sched}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleList)
		r.Post("/records", s.handleImport)
		r.Delete("/records", s.handleClear)
		r.Patch("/records/{id}", s.handleUpdate)
		r.Delete("/records/{id}", s.handleDelete)
		r.Post("/records/{id}/retry", s.handleRetry)
		r.Get("/export/{format}", s.handleExport)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router (used by tests).
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	zap.L().Info("server: listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// kick starts a scheduler run if one is not already in flight.
func (s *Server) kick() {
	if s.sched == nil {
		return
	}
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.runMu.Unlock()

	go func() {
		defer func() {
			s.runMu.Lock()
			s.running = false
			s.runMu.Unlock()
		}()
		stats, err := s.sched.Run(context.Background())
		if err != nil {
			zap.L().Error("server: queue run failed", zap.Error(err))
			return
		}
		zap.L().Info("server: queue drained",
			zap.Int("processed", stats.Processed),
			zap.Int("errors", stats.Errors),
		)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entries := importer.Parse(req.Text)
	if len(entries) == 0 {
		writeError(w, http.StatusBadRequest, "no URLs found in input")
		return
	}

	created := s.store.Admit(r.Context(), entries)
	s.kick()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var rec model.Bookmark
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec.ID = chi.URLParam(r, "id")
	if err := s.store.Update(r.Context(), rec); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	updated, _ := s.store.Get(rec.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Retry(r.Context(), id); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.kick()
	rec, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, rec)
}

var exportContentTypes = map[string]string{
	export.FormatNetscape: "text/html; charset=utf-8",
	export.FormatCSV:      "text/csv; charset=utf-8",
	export.FormatJSON:     "application/json",
	export.FormatMarkdown: "text/markdown; charset=utf-8",
	export.FormatHTML:     "text/html; charset=utf-8",
	export.FormatXLSX:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	data, err := export.Render(format, s.store.List())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", exportContentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

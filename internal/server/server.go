// Package server exposes the HTTP boundaries: upload, document status,
// page retrieval and search. Handlers are thin I/O wrappers; processing
// happens in the pipeline package.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Neerazan/ocr-project/internal/cache"
	"github.com/Neerazan/ocr-project/internal/search"
	"github.com/Neerazan/ocr-project/internal/store"
)

// Runner starts one document's background processing run.
type Runner interface {
	Run(ctx context.Context, documentID, pdfPath string) error
}

// Archiver copies an uploaded PDF to durable storage, best-effort.
type Archiver interface {
	Archive(ctx context.Context, documentID, localPath string) error
}

type Server struct {
	store          store.Store
	pipeline       Runner
	search         *search.Service
	pageCache      *cache.PageCache // nil disables caching
	archiver       Archiver         // nil disables archival
	uploadDir      string
	maxUploadBytes int64
	logger         *slog.Logger
}

func New(
	st store.Store,
	pipeline Runner,
	searchSvc *search.Service,
	pageCache *cache.PageCache,
	archiver Archiver,
	uploadDir string,
	maxUploadBytes int64,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:          st,
		pipeline:       pipeline,
		search:         searchSvc,
		pageCache:      pageCache,
		archiver:       archiver,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Routes builds the router for all boundaries.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"service":"ocr-project"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/upload", s.handleUpload)
	r.Get("/api/documents", s.handleListDocuments)
	r.Get("/api/documents/{id}/status", s.handleDocumentStatus)
	r.Get("/api/documents/{id}/pages/{pageNum}", s.handleGetPage)
	r.Get("/api/search", s.handleSearch)

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

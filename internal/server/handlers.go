package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Neerazan/ocr-project/internal/metrics"
	"github.com/Neerazan/ocr-project/internal/models"
	"github.com/Neerazan/ocr-project/internal/search"
	"github.com/Neerazan/ocr-project/internal/store"
)

// handleUpload accepts a PDF, creates the document record and kicks off the
// background processing run. The response goes out before any processing
// happens; clients poll the status endpoint for progress.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	// The declared content type is authoritative; the extension only
	// decides when the client sent none.
	switch {
	case contentType == "application/pdf":
	case contentType == "" && strings.EqualFold(filepath.Ext(fileName), ".pdf"):
	default:
		respondError(w, http.StatusBadRequest, "only PDF files are allowed")
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.logger.Error("failed to create upload directory", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	storedPath := filepath.Join(s.uploadDir, uuid.NewString()+"-"+fileName)
	dst, err := os.Create(storedPath)
	if err != nil {
		s.logger.Error("failed to create upload file", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(storedPath)
		s.logger.Error("failed to write upload file", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	dst.Close()

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	doc := &models.Document{
		Title:    title,
		FileName: fileName,
		FilePath: storedPath,
		Status:   models.StatusPending,
	}
	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		os.Remove(storedPath)
		s.logger.Error("failed to create document record", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create document")
		return
	}

	metrics.UploadsTotal.Inc()
	respondJSON(w, http.StatusAccepted, models.UploadResponse{
		Message:    "PDF uploaded successfully and processing has begun",
		DocumentID: doc.ID,
	})

	// Fire and forget: the request context dies with this response, so the
	// run gets a fresh one.
	go func() {
		ctx := context.Background()
		if s.archiver != nil {
			if err := s.archiver.Archive(ctx, doc.ID, storedPath); err != nil {
				s.logger.Warn("failed to archive upload", "documentId", doc.ID, "error", err)
			}
		}
		if err := s.pipeline.Run(ctx, doc.ID, storedPath); err != nil {
			s.logger.Error("pipeline run failed", "documentId", doc.ID, "error", err)
		}
	}()
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get documents")
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get document", "documentId", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get document status")
		return
	}
	respondJSON(w, http.StatusOK, models.DocumentStatusResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Status:    doc.Status,
		PageCount: doc.PageCount,
		CreatedAt: doc.CreatedAt,
	})
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pageNum, err := strconv.Atoi(chi.URLParam(r, "pageNum"))
	if err != nil || pageNum < 1 {
		respondError(w, http.StatusBadRequest, "invalid page number")
		return
	}

	if s.pageCache != nil {
		if page := s.pageCache.Get(r.Context(), id, pageNum); page != nil {
			respondJSON(w, http.StatusOK, page)
			return
		}
	}

	page, err := s.store.GetPage(r.Context(), id, pageNum)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get page", "documentId", id, "pageNumber", pageNum, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get page")
		return
	}

	if s.pageCache != nil {
		s.pageCache.Set(r.Context(), page)
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := s.search.Search(r.Context(), query)
	if errors.Is(err, search.ErrInvalidQuery) {
		respondError(w, http.StatusBadRequest, "search query is required")
		return
	}
	if err != nil {
		s.logger.Error("search failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to search documents")
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	respondJSON(w, http.StatusOK, results)
}

// Package pipeline contains the asynchronous document processing core: one
// run takes a stored PDF from PENDING to a terminal status, page by page.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Neerazan/ocr-project/internal/metrics"
	"github.com/Neerazan/ocr-project/internal/models"
	"github.com/Neerazan/ocr-project/internal/raster"
	"github.com/Neerazan/ocr-project/internal/store"
)

// Rasterizer converts one PDF into ordered, contiguous page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outputDir string) ([]raster.PageImage, error)
}

// Pipeline orchestrates a whole document run. Callers must not invoke Run
// twice concurrently for the same document; a single run owns the
// document's status and image directory for its lifetime.
type Pipeline struct {
	store       store.Store
	rasterizer  Rasterizer
	pages       *PageProcessor
	imageRoot   string
	workers     int
	docDeadline time.Duration
	logger      *slog.Logger
}

func New(
	st store.Store,
	rasterizer Rasterizer,
	pages *PageProcessor,
	imageRoot string,
	workers int,
	docDeadline time.Duration,
	logger *slog.Logger,
) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if docDeadline <= 0 {
		docDeadline = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:       st,
		rasterizer:  rasterizer,
		pages:       pages,
		imageRoot:   imageRoot,
		workers:     workers,
		docDeadline: docDeadline,
		logger:      logger,
	}
}

// Run processes one uploaded document to completion. It is invoked as a
// detached background task; the returned error is the terminal failure (if
// any) for the caller to log, since the user-visible surface is the status
// field observed via polling.
func (p *Pipeline) Run(ctx context.Context, documentID, pdfPath string) error {
	logCtx := p.logger.With("documentId", documentID)
	logCtx.Info("pipeline run started", "pdfPath", pdfPath)

	ctx, cancel := context.WithTimeout(ctx, p.docDeadline)
	defer cancel()

	outputDir := filepath.Join(p.imageRoot, documentID)
	images, err := p.rasterizer.Rasterize(ctx, pdfPath, outputDir)
	if err != nil {
		return p.fail(logCtx, documentID, "rasterization failed", err)
	}

	pageCount := len(images)
	if err := p.store.UpdateDocumentStatus(ctx, documentID, models.StatusProcessing, &pageCount); err != nil {
		return p.fail(logCtx, documentID, "failed to update status to PROCESSING", err)
	}
	logCtx.Info("document rasterized", "pageCount", pageCount)

	// Every page gets its attempt regardless of sibling failures, so the
	// group never propagates errors or cancels its context; failures are
	// collected and applied once at the join point below.
	var (
		mu     sync.Mutex
		failed []int
	)
	var eg errgroup.Group
	eg.SetLimit(p.workers)
	for _, img := range images {
		img := img
		eg.Go(func() error {
			if err := p.pages.Process(ctx, documentID, img); err != nil {
				logCtx.Error("page failed", "pageNumber", img.PageNumber, "error", err)
				mu.Lock()
				failed = append(failed, img.PageNumber)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	if len(failed) > 0 {
		return p.fail(logCtx, documentID, fmt.Sprintf("%d of %d pages failed", len(failed), pageCount), nil)
	}

	if err := p.finalize(documentID, models.StatusCompleted); err != nil {
		return p.fail(logCtx, documentID, "failed to update status to COMPLETED", err)
	}
	metrics.DocumentsProcessed.WithLabelValues(string(models.StatusCompleted)).Inc()
	logCtx.Info("pipeline run completed", "pageCount", pageCount)
	return nil
}

// fail records the terminal ERROR status and returns the wrapped cause. The
// status write uses a fresh context so it still lands after the document
// deadline has expired.
func (p *Pipeline) fail(logCtx *slog.Logger, documentID, message string, cause error) error {
	logCtx.Error(message, "error", cause)
	if err := p.finalize(documentID, models.StatusError); err != nil {
		logCtx.Error("CRITICAL: failed to update status to ERROR after a processing failure", "updateError", err)
	}
	metrics.DocumentsProcessed.WithLabelValues(string(models.StatusError)).Inc()
	if cause != nil {
		return fmt.Errorf("%s: %w", message, cause)
	}
	return fmt.Errorf("%s", message)
}

func (p *Pipeline) finalize(documentID string, status models.DocumentStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.store.UpdateDocumentStatus(ctx, documentID, status, nil)
}

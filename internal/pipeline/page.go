package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Neerazan/ocr-project/internal/capability"
	"github.com/Neerazan/ocr-project/internal/metrics"
	"github.com/Neerazan/ocr-project/internal/models"
	"github.com/Neerazan/ocr-project/internal/raster"
	"github.com/Neerazan/ocr-project/internal/store"
)

// ErrExtractionFailed marks a page whose OCR call errored or produced no
// usable text. Fatal to that page only; sibling pages keep processing.
var ErrExtractionFailed = errors.New("extraction produced no text")

// PageProcessor drives one page through preprocess, extract, correct and
// persist. Preprocessing and correction are best-effort: their failures
// degrade to the unenhanced input instead of failing the page.
type PageProcessor struct {
	store        store.Store
	preprocessor capability.Preprocessor // nil disables the stage
	extractor    capability.Extractor
	corrector    capability.Corrector // nil disables the stage
	preset       string
	callTimeout  time.Duration
	logger       *slog.Logger
}

func NewPageProcessor(
	st store.Store,
	preprocessor capability.Preprocessor,
	extractor capability.Extractor,
	corrector capability.Corrector,
	preset string,
	callTimeout time.Duration,
	logger *slog.Logger,
) *PageProcessor {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageProcessor{
		store:        st,
		preprocessor: preprocessor,
		extractor:    extractor,
		corrector:    corrector,
		preset:       preset,
		callTimeout:  callTimeout,
		logger:       logger,
	}
}

// Process runs all stages for one page. On success exactly one Page row
// exists afterwards; on failure none does.
func (p *PageProcessor) Process(ctx context.Context, documentID string, img raster.PageImage) error {
	start := time.Now()
	logCtx := p.logger.With("documentId", documentID, "pageNumber", img.PageNumber)

	image, err := os.ReadFile(img.Path)
	if err != nil {
		return fmt.Errorf("failed to read page image: %w", err)
	}
	imagePath := img.Path

	if p.preprocessor != nil {
		processed, ppPath, err := p.preprocess(ctx, img, image)
		if err != nil {
			logCtx.Warn("preprocessing failed, continuing with raw image", "error", err)
			metrics.CapabilityDegraded.WithLabelValues("preprocess").Inc()
		} else {
			image = processed
			imagePath = ppPath
		}
	}

	text, err := p.extract(ctx, image)
	if err != nil {
		metrics.PagesProcessed.WithLabelValues("failed").Inc()
		return err
	}

	content := p.correct(ctx, logCtx, text)

	page := &models.Page{
		DocumentID: documentID,
		PageNumber: img.PageNumber,
		Content:    content,
		ImagePath:  imagePath,
	}
	if err := p.store.CreatePage(ctx, page); err != nil {
		metrics.PagesProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to persist page %d: %w", img.PageNumber, err)
	}

	metrics.PagesProcessed.WithLabelValues("succeeded").Inc()
	metrics.PageDuration.Observe(time.Since(start).Seconds())
	logCtx.Info("page processed", "duration", time.Since(start).String())
	return nil
}

// preprocess sends the raw image to the preprocessing service and writes
// the normalized result next to the original so the persisted image path
// reflects what was actually OCR'd.
func (p *PageProcessor) preprocess(ctx context.Context, img raster.PageImage, image []byte) ([]byte, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	processed, err := p.preprocessor.Preprocess(callCtx, image, p.preset)
	if err != nil {
		return nil, "", err
	}

	dir := filepath.Dir(img.Path)
	ppPath := filepath.Join(dir, fmt.Sprintf("page-%d-preprocessed.png", img.PageNumber))
	if err := os.WriteFile(ppPath, processed, 0o644); err != nil {
		return nil, "", fmt.Errorf("failed to write preprocessed image: %w", err)
	}
	return processed, ppPath, nil
}

func (p *PageProcessor) extract(ctx context.Context, image []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	text, err := p.extractor.Extract(callCtx, image)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrExtractionFailed
	}
	return text, nil
}

// correct returns the corrected text, or the extracted text unchanged when
// correction is disabled, fails, or comes back empty. The persisted content
// is never empty as long as extraction succeeded.
func (p *PageProcessor) correct(ctx context.Context, logCtx *slog.Logger, text string) string {
	if p.corrector == nil {
		return text
	}
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	corrected, err := p.corrector.Correct(callCtx, text)
	if err != nil {
		logCtx.Warn("correction failed, keeping extracted text", "error", err)
		metrics.CapabilityDegraded.WithLabelValues("correct").Inc()
		return text
	}
	if strings.TrimSpace(corrected) == "" {
		logCtx.Warn("correction returned empty text, keeping extracted text")
		metrics.CapabilityDegraded.WithLabelValues("correct").Inc()
		return text
	}
	return corrected
}

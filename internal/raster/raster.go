// Package raster converts a stored PDF into one image file per page.
package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrMalformedDocument marks input that cannot be parsed or page-counted as
// a PDF. Fatal for the whole document; no partial rasterization is attempted.
var ErrMalformedDocument = errors.New("malformed pdf document")

// PageImage is the handle to one rendered page, 1-based and contiguous.
type PageImage struct {
	PageNumber int
	Path       string
}

// Config fixes the rasterization parameters so output is deterministic for
// a given document.
type Config struct {
	// DPI is the render resolution passed to pdftoppm.
	DPI int
	// ScaleTo bounds the longer image dimension in pixels.
	ScaleTo int
}

// Poppler rasterizes with the poppler-utils pdftoppm binary, after
// validating and page-counting the PDF with pdfcpu. pdftoppm must be on
// PATH.
type Poppler struct {
	cfg    Config
	logger *slog.Logger
}

func NewPoppler(cfg Config, logger *slog.Logger) *Poppler {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.ScaleTo <= 0 {
		cfg.ScaleTo = 2048
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poppler{cfg: cfg, logger: logger}
}

// PageImagePath returns the stable, page-number-addressable location of a
// rendered page inside its document-scoped directory.
func PageImagePath(outputDir string, pageNumber int) string {
	return filepath.Join(outputDir, fmt.Sprintf("page-%d.png", pageNumber))
}

// Rasterize validates the PDF, determines its page count, renders every
// page into outputDir and returns the handles ordered by page number.
func (r *Poppler) Rasterize(ctx context.Context, pdfPath, outputDir string) ([]PageImage, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(pdfPath, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if pageCount < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrMalformedDocument)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	r.logger.Info("rasterizing document", "pdfPath", pdfPath, "pageCount", pageCount, "dpi", r.cfg.DPI)

	images := make([]PageImage, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		path, err := r.renderPage(ctx, pdfPath, outputDir, i)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i, err)
		}
		images = append(images, PageImage{PageNumber: i, Path: path})
	}
	return images, nil
}

func (r *Poppler) renderPage(ctx context.Context, pdfPath, outputDir string, pageNumber int) (string, error) {
	out := PageImagePath(outputDir, pageNumber)
	// -singlefile drops pdftoppm's page-number suffix so the output name
	// stays under our control.
	prefix := out[:len(out)-len(".png")]
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-r", strconv.Itoa(r.cfg.DPI),
		"-scale-to", strconv.Itoa(r.cfg.ScaleTo),
		"-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		"-singlefile",
		pdfPath, prefix)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, output)
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("pdftoppm produced no output: %w", err)
	}
	return out, nil
}

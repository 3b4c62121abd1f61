// Package store provides the durable record of document and page state.
// The pipeline is the sole writer for a given document while a run is in
// flight; status and search queries share the read path concurrently.
package store

import (
	"context"
	"errors"

	"github.com/Neerazan/ocr-project/internal/models"
)

// ErrNotFound is returned by read operations for unknown identifiers.
var ErrNotFound = errors.New("not found")

// ErrPageExists is returned when a Page row for (documentId, pageNumber)
// has already been written.
var ErrPageExists = errors.New("page already exists")

// Store is the persistence contract consumed by the pipeline and the query
// boundaries. Each operation is individually atomic; callers never compose
// them into multi-row transactions.
//
// UpdateDocumentStatus silently ignores writes against a document that is
// already in a terminal status, so a late or duplicate transition can never
// resurrect a finished run.
type Store interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, pageCount *int) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)

	CreatePage(ctx context.Context, page *models.Page) error
	GetPage(ctx context.Context, documentID string, pageNumber int) (*models.Page, error)

	// FindPagesContaining returns every page whose content contains the
	// given substring, case-insensitively, joined with its document's
	// display fields. Ordering follows the backend's natural return order.
	FindPagesContaining(ctx context.Context, substr string) ([]models.PageMatch, error)

	Close() error
}

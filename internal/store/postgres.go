package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Neerazan/ocr-project/internal/models"
)

// Postgres is the default Store backend.
type Postgres struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	file_name  TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	page_count INTEGER,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	document_id TEXT NOT NULL REFERENCES documents(id),
	page_number INTEGER NOT NULL,
	content     TEXT NOT NULL,
	image_path  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (document_id, page_number)
);
`

// NewPostgres opens the database, verifies the connection and ensures the
// schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, file_name, file_path, page_count, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.Title, doc.FileName, doc.FilePath, doc.PageCount, doc.Status, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (s *Postgres) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, pageCount *int) error {
	// The status guard lives in the WHERE clause so terminal documents
	// are never overwritten, without a read-modify-write race.
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET status = $2, page_count = COALESCE($3, page_count), updated_at = $4
		 WHERE id = $1 AND status NOT IN ($5, $6)`,
		id, status, pageCount, time.Now(), models.StatusCompleted, models.StatusError)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		// Either the id is unknown or the document already reached a
		// terminal status; only the former is an error.
		if _, err := s.GetDocument(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, file_name, file_path, page_count, status, created_at, updated_at
		 FROM documents WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Title, &doc.FileName, &doc.FilePath, &doc.PageCount, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *Postgres) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, file_name, file_path, page_count, status, created_at, updated_at
		 FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.FileName, &doc.FilePath, &doc.PageCount, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Postgres) CreatePage(ctx context.Context, page *models.Page) error {
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (document_id, page_number, content, image_path, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		page.DocumentID, page.PageNumber, page.Content, page.ImagePath, page.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrPageExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

func (s *Postgres) GetPage(ctx context.Context, documentID string, pageNumber int) (*models.Page, error) {
	var page models.Page
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, page_number, content, image_path, created_at
		 FROM pages WHERE document_id = $1 AND page_number = $2`,
		documentID, pageNumber).
		Scan(&page.DocumentID, &page.PageNumber, &page.Content, &page.ImagePath, &page.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *Postgres) FindPagesContaining(ctx context.Context, substr string) ([]models.PageMatch, error) {
	pattern := "%" + escapeLike(substr) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.document_id, d.title, d.file_name, p.page_number, p.content
		 FROM pages p
		 JOIN documents d ON d.id = p.document_id
		 WHERE p.content ILIKE $1 ESCAPE '\'`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search pages: %w", err)
	}
	defer rows.Close()

	var matches []models.PageMatch
	for rows.Next() {
		var m models.PageMatch
		if err := rows.Scan(&m.DocumentID, &m.DocumentTitle, &m.FileName, &m.PageNumber, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan page match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Postgres) Close() error { return s.db.Close() }

// escapeLike neutralizes LIKE metacharacters so the query string is treated
// as a literal substring.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

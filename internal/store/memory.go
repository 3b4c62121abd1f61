package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Neerazan/ocr-project/internal/models"
)

// Memory is an in-process Store for tests and local development
// (STORE_BACKEND=memory). Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	docs  map[string]models.Document
	pages map[string]models.Page
}

func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]models.Document),
		pages: make(map[string]models.Page),
	}
}

func pageKey(documentID string, pageNumber int) string {
	return fmt.Sprintf("%s/%d", documentID, pageNumber)
}

func (m *Memory) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	m.docs[doc.ID] = *doc
	return nil
}

func (m *Memory) UpdateDocumentStatus(_ context.Context, id string, status models.DocumentStatus, pageCount *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status.Terminal() {
		return nil
	}
	doc.Status = status
	if pageCount != nil {
		n := *pageCount
		doc.PageCount = &n
	}
	doc.UpdatedAt = time.Now()
	m.docs[id] = doc
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (m *Memory) ListDocuments(_ context.Context) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) CreatePage(_ context.Context, page *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pageKey(page.DocumentID, page.PageNumber)
	if _, ok := m.pages[key]; ok {
		return ErrPageExists
	}
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now()
	}
	m.pages[key] = *page
	return nil
}

func (m *Memory) GetPage(_ context.Context, documentID string, pageNumber int) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[pageKey(documentID, pageNumber)]
	if !ok {
		return nil, ErrNotFound
	}
	return &page, nil
}

func (m *Memory) FindPagesContaining(_ context.Context, substr string) ([]models.PageMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(substr)
	var matches []models.PageMatch
	for _, p := range m.pages {
		if !strings.Contains(strings.ToLower(p.Content), needle) {
			continue
		}
		doc := m.docs[p.DocumentID]
		matches = append(matches, models.PageMatch{
			DocumentID:    p.DocumentID,
			DocumentTitle: doc.Title,
			FileName:      doc.FileName,
			PageNumber:    p.PageNumber,
			Content:       p.Content,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DocumentID != matches[j].DocumentID {
			return matches[i].DocumentID < matches[j].DocumentID
		}
		return matches[i].PageNumber < matches[j].PageNumber
	})
	return matches, nil
}

func (m *Memory) Close() error { return nil }

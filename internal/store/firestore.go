package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Neerazan/ocr-project/internal/models"
)

// Firestore is an alternative Store backend. Pages live in a "pages"
// subcollection under each document, keyed by zero-padded page number.
//
// Firestore has no substring operator, so FindPagesContaining scans the
// pages collection group and filters client-side. Fine for the library
// sizes this service targets; use the Postgres backend for large corpora.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(ctx context.Context, projectID, collection string) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &Firestore{client: client, collection: collection}, nil
}

func (s *Firestore) docRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *Firestore) pageRef(documentID string, pageNumber int) *firestore.DocumentRef {
	return s.docRef(documentID).Collection("pages").Doc(fmt.Sprintf("%05d", pageNumber))
}

func (s *Firestore) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	var ref *firestore.DocumentRef
	if doc.ID == "" {
		ref = s.client.Collection(s.collection).NewDoc()
		doc.ID = ref.ID
	} else {
		ref = s.docRef(doc.ID)
	}
	if _, err := ref.Create(ctx, doc); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (s *Firestore) UpdateDocumentStatus(ctx context.Context, id string, st models.DocumentStatus, pageCount *int) error {
	ref := s.docRef(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var current models.Document
		if err := snap.DataTo(&current); err != nil {
			return err
		}
		if current.Status.Terminal() {
			return nil
		}
		updates := []firestore.Update{
			{Path: "status", Value: st},
			{Path: "updatedAt", Value: time.Now()},
		}
		if pageCount != nil {
			updates = append(updates, firestore.Update{Path: "pageCount", Value: *pageCount})
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

func (s *Firestore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	snap, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.ID = snap.Ref.ID
	return &doc, nil
}

func (s *Firestore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	iter := s.client.Collection(s.collection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var docs []models.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		var doc models.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Firestore) CreatePage(ctx context.Context, page *models.Page) error {
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now()
	}
	_, err := s.pageRef(page.DocumentID, page.PageNumber).Create(ctx, page)
	if status.Code(err) == codes.AlreadyExists {
		return ErrPageExists
	}
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

func (s *Firestore) GetPage(ctx context.Context, documentID string, pageNumber int) (*models.Page, error) {
	snap, err := s.pageRef(documentID, pageNumber).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	var page models.Page
	if err := snap.DataTo(&page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	page.DocumentID = documentID
	return &page, nil
}

func (s *Firestore) FindPagesContaining(ctx context.Context, substr string) ([]models.PageMatch, error) {
	needle := strings.ToLower(substr)
	iter := s.client.CollectionGroup("pages").Documents(ctx)
	defer iter.Stop()

	docCache := make(map[string]*models.Document)
	var matches []models.PageMatch
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan pages: %w", err)
		}
		var page models.Page
		if err := snap.DataTo(&page); err != nil {
			return nil, fmt.Errorf("failed to decode page: %w", err)
		}
		if !strings.Contains(strings.ToLower(page.Content), needle) {
			continue
		}
		parent := snap.Ref.Parent.Parent
		if parent == nil {
			continue
		}
		doc, ok := docCache[parent.ID]
		if !ok {
			doc, err = s.GetDocument(ctx, parent.ID)
			if err != nil {
				return nil, err
			}
			docCache[parent.ID] = doc
		}
		matches = append(matches, models.PageMatch{
			DocumentID:    parent.ID,
			DocumentTitle: doc.Title,
			FileName:      doc.FileName,
			PageNumber:    page.PageNumber,
			Content:       page.Content,
		})
	}
	return matches, nil
}

func (s *Firestore) Close() error { return s.client.Close() }

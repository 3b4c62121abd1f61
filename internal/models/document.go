package models

import "time"

// DocumentStatus is the lifecycle state of an uploaded document.
// Transitions are PENDING -> PROCESSING -> COMPLETED | ERROR; a document
// that fails before its page count is known goes straight from PENDING to
// ERROR. COMPLETED and ERROR are terminal.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusError      DocumentStatus = "ERROR"
)

// Terminal reports whether no further status transition is allowed.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Document is the master record for one uploaded PDF and its processing run.
// PageCount stays nil until the rasterizer has determined it.
type Document struct {
	ID        string         `json:"id" firestore:"-"`
	Title     string         `json:"title" firestore:"title"`
	FileName  string         `json:"fileName" firestore:"fileName"`
	FilePath  string         `json:"filePath" firestore:"filePath"`
	PageCount *int           `json:"pageCount" firestore:"pageCount"`
	Status    DocumentStatus `json:"status" firestore:"status"`
	CreatedAt time.Time      `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" firestore:"updatedAt"`
}

// Page is one unit of per-page OCR output. A Page row is written exactly
// once, after every stage for that page has succeeded, and never mutated.
type Page struct {
	DocumentID string    `json:"documentId" firestore:"-"`
	PageNumber int       `json:"pageNumber" firestore:"pageNumber"`
	Content    string    `json:"content" firestore:"content"`
	ImagePath  string    `json:"imagePath" firestore:"imagePath"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}

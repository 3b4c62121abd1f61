package models

import "time"

// These structs define the JSON payloads exchanged with clients on the
// upload, status and search boundaries.

// UploadResponse is returned with 202 Accepted once a document record
// exists and background processing has been kicked off.
type UploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

// DocumentStatusResponse is the polling payload for a document's progress.
type DocumentStatusResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    DocumentStatus `json:"status"`
	PageCount *int           `json:"pageCount"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PageMatch is a store-level search hit: one page whose content contains
// the query, joined with the owning document's display fields.
type PageMatch struct {
	DocumentID    string
	DocumentTitle string
	FileName      string
	PageNumber    int
	Content       string
}

// SearchResult is one entry of the search boundary's response. Snippet is
// a bounded excerpt around the first match occurrence.
type SearchResult struct {
	DocumentID    string `json:"documentId"`
	DocumentTitle string `json:"documentTitle"`
	FileName      string `json:"fileName"`
	PageNumber    int    `json:"pageNumber"`
	Snippet       string `json:"snippet"`
}

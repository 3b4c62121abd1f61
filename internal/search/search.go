// Package search implements substring search across a document library's
// persisted page text.
package search

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/Neerazan/ocr-project/internal/models"
	"github.com/Neerazan/ocr-project/internal/store"
)

// ErrInvalidQuery rejects empty or whitespace-only queries before they
// reach the store.
var ErrInvalidQuery = errors.New("search query must not be empty")

const (
	snippetContext  = 50
	snippetFallback = 100
)

// Service answers search queries from the store's read path. No ranking:
// results follow the store's natural return order.
type Service struct {
	store store.Store
}

func New(st store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}
	matches, err := s.store.FindPagesContaining(ctx, query)
	if err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, models.SearchResult{
			DocumentID:    m.DocumentID,
			DocumentTitle: m.DocumentTitle,
			FileName:      m.FileName,
			PageNumber:    m.PageNumber,
			Snippet:       Snippet(m.Content, query),
		})
	}
	return results, nil
}

// Snippet extracts a window of content centered on the first
// case-insensitive occurrence of query: up to 50 characters of left context
// and len(query)+50 of right context, with "..." marking truncated edges.
// If the query does not occur, the first 100 characters are returned with a
// trailing ellipsis.
func Snippet(content, query string) string {
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(content) > snippetFallback {
			cut := snippetFallback
			// Window edges are byte offsets; back off to a rune start so
			// a multi-byte character is never cut in half.
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			return content[:cut] + "..."
		}
		return content + "..."
	}

	start := idx - snippetContext
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	end := idx + len(query) + snippetContext
	if end > len(content) {
		end = len(content)
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}

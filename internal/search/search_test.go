package search

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neerazan/ocr-project/internal/models"
	"github.com/Neerazan/ocr-project/internal/store"
)

func seedPage(t *testing.T, st *store.Memory, title, content string, pageNumber int) string {
	t.Helper()
	doc := &models.Document{
		Title:    title,
		FileName: title + ".pdf",
		FilePath: "/tmp/" + title + ".pdf",
		Status:   models.StatusCompleted,
	}
	require.NoError(t, st.CreateDocument(context.Background(), doc))
	require.NoError(t, st.CreatePage(context.Background(), &models.Page{
		DocumentID: doc.ID,
		PageNumber: pageNumber,
		Content:    content,
		ImagePath:  "/tmp/page.png",
	}))
	return doc.ID
}

func TestSearch_RejectsEmptyQueries(t *testing.T) {
	svc := New(store.NewMemory())

	_, err := svc.Search(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.Search(context.Background(), "   \t ")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearch_CaseInsensitiveContainment(t *testing.T) {
	st := store.NewMemory()
	id := seedPage(t, st, "thesis", "The MITOCHONDRIA is the powerhouse of the cell.", 4)
	seedPage(t, st, "recipes", "Fold the egg whites gently into the batter.", 1)

	results, err := New(st).Search(context.Background(), "mitochondria")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].DocumentID)
	assert.Equal(t, "thesis", results[0].DocumentTitle)
	assert.Equal(t, "thesis.pdf", results[0].FileName)
	assert.Equal(t, 4, results[0].PageNumber)
	assert.Contains(t, strings.ToLower(results[0].Snippet), "mitochondria")
}

func TestSnippet_MatchAtStartHasNoLeadingEllipsis(t *testing.T) {
	content := "Alpha particles " + strings.Repeat("x", 200)
	got := Snippet(content, "Alpha")
	assert.False(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSnippet_MatchInMiddleIsTruncatedBothSides(t *testing.T) {
	content := strings.Repeat("a", 200) + "needle" + strings.Repeat("b", 200)
	got := Snippet(content, "needle")
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Contains(t, got, "needle")
	assert.LessOrEqual(t, len(got), len("needle")+100+6)
}

func TestSnippet_ShortContentIsReturnedWhole(t *testing.T) {
	got := Snippet("tiny page about needles", "needle")
	assert.Equal(t, "tiny page about needles", got)
}

func TestSnippet_CaseInsensitiveMatch(t *testing.T) {
	got := Snippet("Some NEEDLE here", "needle")
	assert.Contains(t, got, "NEEDLE")
	assert.False(t, strings.HasPrefix(got, "..."))
}

func TestSnippet_NoMatchFallsBackToPrefix(t *testing.T) {
	long := strings.Repeat("z", 250)
	got := Snippet(long, "absent")
	assert.Equal(t, long[:100]+"...", got)

	short := "short content"
	assert.Equal(t, short+"...", Snippet(short, "absent"))
}

func TestSnippet_NeverSplitsMultibyteRunes(t *testing.T) {
	// Both window edges land mid-rune: the match starts at byte 120 and
	// every surrounding rune is three bytes wide.
	content := strings.Repeat("日", 40) + "needle" + strings.Repeat("本", 40)
	got := Snippet(content, "needle")
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "needle")
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSnippet_FallbackRespectsRuneBoundaries(t *testing.T) {
	content := strings.Repeat("日", 50)
	got := Snippet(content, "absent")
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neerazan/ocr-project/internal/capability"
	"github.com/Neerazan/ocr-project/internal/models"
	"github.com/Neerazan/ocr-project/internal/raster"
	"github.com/Neerazan/ocr-project/internal/store"
)

// fakeRasterizer writes real files so the page processor can read them;
// page N's image content is "img-N", which the fake extractor keys on.
type fakeRasterizer struct {
	pages int
	err   error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _, outputDir string) ([]raster.PageImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	images := make([]raster.PageImage, 0, f.pages)
	for i := 1; i <= f.pages; i++ {
		path := raster.PageImagePath(outputDir, i)
		if err := os.WriteFile(path, []byte(fmt.Sprintf("img-%d", i)), 0o644); err != nil {
			return nil, err
		}
		images = append(images, raster.PageImage{PageNumber: i, Path: path})
	}
	return images, nil
}

type fakeExtractor struct {
	fail map[string]bool
}

func (f *fakeExtractor) Extract(_ context.Context, image []byte) (string, error) {
	key := string(image)
	if f.fail[key] {
		return "", errors.New("simulated ocr failure")
	}
	return "extracted text from " + key, nil
}

// blockingExtractor parks until the call context expires, simulating a hung
// OCR backend. A nil block map hangs every page; otherwise only the listed
// image keys hang and the rest extract normally.
type blockingExtractor struct {
	block map[string]bool
}

func (b *blockingExtractor) Extract(ctx context.Context, image []byte) (string, error) {
	key := string(image)
	if b.block == nil || b.block[key] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "extracted text from " + key, nil
}

// deadlineStore fails any call whose context has already expired, the way a
// real backend would.
type deadlineStore struct {
	store.Store
}

func (d *deadlineStore) UpdateDocumentStatus(ctx context.Context, id string, st models.DocumentStatus, pageCount *int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.Store.UpdateDocumentStatus(ctx, id, st, pageCount)
}

type fakeCorrector struct {
	err    error
	result string
}

func (f *fakeCorrector) Correct(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.result != "" {
		return f.result, nil
	}
	return "corrected: " + text, nil
}

func newTestPipeline(t *testing.T, st store.Store, ras Rasterizer, extractor *fakeExtractor, corrector *fakeCorrector, workers int) *Pipeline {
	t.Helper()
	var c capability.Corrector
	if corrector != nil {
		c = corrector
	}
	pages := NewPageProcessor(st, nil, extractor, c, "auto", time.Minute, nil)
	return New(st, ras, pages, t.TempDir(), workers, time.Minute, nil)
}

func createPendingDocument(t *testing.T, st store.Store) string {
	t.Helper()
	doc := &models.Document{
		Title:    "scanned notes",
		FileName: "notes.pdf",
		FilePath: "/tmp/notes.pdf",
		Status:   models.StatusPending,
	}
	require.NoError(t, st.CreateDocument(context.Background(), doc))
	return doc.ID
}

func TestRun_AllPagesSucceed(t *testing.T) {
	st := store.NewMemory()
	id := createPendingDocument(t, st)
	p := newTestPipeline(t, st, &fakeRasterizer{pages: 3}, &fakeExtractor{}, &fakeCorrector{}, 1)

	require.NoError(t, p.Run(context.Background(), id, "/tmp/notes.pdf"))

	doc, err := st.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	require.NotNil(t, doc.PageCount)
	assert.Equal(t, 3, *doc.PageCount)

	for i := 1; i <= 3; i++ {
		page, err := st.GetPage(context.Background(), id, i)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("corrected: extracted text from img-%d", i), page.Content)
	}
}

func TestRun_SinglePageFailureMarksDocumentError(t *testing.T) {
	st := store.NewMemory()
	id := createPendingDocument(t, st)
	extractor := &fakeExtractor{fail: map[string]bool{"img-2": true}}
	p := newTestPipeline(t, st, &fakeRasterizer{pages: 3}, extractor, &fakeCorrector{}, 1)

	err := p.Run(context.Background(), id, "/tmp/notes.pdf")
	require.Error(t, err)

	doc, err := st.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, doc.Status)
	require.NotNil(t, doc.PageCount)
	assert.Equal(t, 3, *doc.PageCount)

	// Successful siblings keep their rows; the failed page has none.
	_, err = st.GetPage(context.Background(), id, 1)
	assert.NoError(t, err)
	_, err = st.GetPage(context.Background(), id, 3)
	assert.NoError(t, err)
	_, err = st.GetPage(context.Background(), id, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_MalformedDocument(t *testing.T) {
	st := store.NewMemory()
	id := createPendingDocument(t, st)
	ras := &fakeRasterizer{err: fmt.Errorf("%w: bad xref", raster.ErrMalformedDocument)}
	p := newTestPipeline(t, st, ras, &fakeExtractor{}, &fakeCorrector{}, 1)

	err := p.Run(context.Background(), id, "/tmp/garbage.pdf")
	require.ErrorIs(t, err, raster.ErrMalformedDocument)

	doc, err := st.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, doc.Status)
	assert.Nil(t, doc.PageCount, "page count must stay unset when rasterization fails")

	_, err = st.GetPage(context.Background(), id, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_CorrectorFailureFallsBackToExtractedText(t *testing.T) {
	st := store.NewMemory()
	id := createPendingDocument(t, st)
	corrector := &fakeCorrector{err: errors.New("model unavailable")}
	p := newTestPipeline(t, st, &fakeRasterizer{pages: 1}, &fakeExtractor{}, corrector, 1)

	require.NoError(t, p.Run(context.Background(), id, "/tmp/notes.pdf"))

	doc, err := st.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)

	page, err := st.GetPage(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, "extracted text from img-1", page.Content)
}

func TestRun_EmptyCorrectionFallsBackToExtractedText(t *testing.T) {
	st := store.NewMemory()
	id := createPendingDocument(t, st)
	corrector := &fakeCorrector{result: "   "}
	p := newTestPipeline(t, st, &fakeRasterizer{pages: 1}, &fakeExtractor{}, corrector, 1)

	require.NoError(t, p.Run(context.Background(), id, "/tmp/notes.pdf"))

	page, err := st.GetPage(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, "extracted text from img-1", page.Content)
}

func TestRun_HungExtractionCallTimesOutAndFailsOnlyThatPage(t *testing.T) {
	st := store.NewMemory()
	id := createPendingDocument(t, st)
	extractor := &blockingExtractor{block: map[string]bool{"img-2": true}}
	pages := NewPageProcessor(st, nil, extractor, nil, "auto", 20*time.Millisecond, nil)
	p := New(st, &fakeRasterizer{pages: 3}, pages, t.TempDir(), 1, time.Minute, nil)

	start := time.Now()
	err := p.Run(context.Background(), id, "/tmp/notes.pdf")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "a hung call must not block the run")

	doc, err := st.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, doc.Status)

	_, err = st.GetPage(context.Background(), id, 1)
	assert.NoError(t, err)
	_, err = st.GetPage(context.Background(), id, 3)
	assert.NoError(t, err)
	_, err = st.GetPage(context.Background(), id, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_DocumentDeadlineExpiryStillRecordsError(t *testing.T) {
	mem := store.NewMemory()
	st := &deadlineStore{Store: mem}
	id := createPendingDocument(t, mem)
	extractor := &blockingExtractor{}
	pages := NewPageProcessor(st, nil, extractor, nil, "auto", time.Minute, nil)
	p := New(st, &fakeRasterizer{pages: 2}, pages, t.TempDir(), 1, 30*time.Millisecond, nil)

	err := p.Run(context.Background(), id, "/tmp/notes.pdf")
	require.Error(t, err)

	doc, err := mem.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, doc.Status,
		"terminal status must land even after the document deadline has expired")
	require.NotNil(t, doc.PageCount)
	assert.Equal(t, 2, *doc.PageCount)

	_, err = mem.GetPage(context.Background(), id, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_ParallelWorkers(t *testing.T) {
	st := store.NewMemory()
	id := createPendingDocument(t, st)
	p := newTestPipeline(t, st, &fakeRasterizer{pages: 8}, &fakeExtractor{}, &fakeCorrector{}, 4)

	require.NoError(t, p.Run(context.Background(), id, "/tmp/notes.pdf"))

	doc, err := st.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	for i := 1; i <= 8; i++ {
		_, err := st.GetPage(context.Background(), id, i)
		assert.NoError(t, err, "page %d should be persisted", i)
	}
}

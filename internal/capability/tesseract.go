package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractExtractor runs OCR locally through tesseract. It needs no
// network or credentials, at the cost of accuracy on noisy scans.
type TesseractExtractor struct {
	language string
}

func NewTesseractExtractor(language string) *TesseractExtractor {
	if language == "" {
		language = "eng"
	}
	return &TesseractExtractor{language: language}
}

// Extract runs a fresh gosseract client per call; the client is not safe
// for concurrent use across pages. The OCR work runs on its own goroutine
// because tesseract has no cancellation hook, so a hung recognition must
// not block the caller past its deadline.
func (e *TesseractExtractor) Extract(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := e.recognize(image)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}

func (e *TesseractExtractor) recognize(image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("failed to set tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image into tesseract: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

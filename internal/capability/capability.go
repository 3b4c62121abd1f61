// Package capability defines the external text/image transformations the
// pipeline invokes but does not implement. Each one is an interface so any
// backing model or service can be substituted behind the same contract.
package capability

import "context"

// Preprocessor normalizes a raster image (deskew, denoise, contrast) ahead
// of OCR. Best-effort: callers fall back to the raw image on failure.
type Preprocessor interface {
	Preprocess(ctx context.Context, image []byte, preset string) ([]byte, error)
}

// Extractor returns the raw text read from an image. Failure, or an empty
// result, is fatal to the page being processed.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (string, error)
}

// Corrector cleans up OCR artifacts in extracted text. Best-effort: callers
// fall back to the uncorrected input on failure.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

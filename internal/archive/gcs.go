// Package archive copies uploaded PDFs to a cloud bucket so the originals
// survive local disk loss. Archival is best-effort and never blocks or
// fails a processing run.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

type GCSArchiver struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

func NewGCS(ctx context.Context, bucket string, logger *slog.Logger) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket must not be empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSArchiver{client: client, bucket: bucket, logger: logger}, nil
}

// Archive uploads the stored PDF as <documentID>.pdf, retrying transient
// failures with exponential backoff. An object that already exists is a
// clean no-op.
func (a *GCSArchiver) Archive(ctx context.Context, documentID, localPath string) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	objectName := documentID + ".pdf"

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := a.upload(ctx, objectName, localPath)
		if err == nil {
			return nil
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			// Precondition failed: the object already exists.
			return nil
		}
		lastErr = err
		a.logger.Warn("archive upload failed, will retry",
			"object", objectName, "attempt", i+1, "backoff", backoff.String(), "error", err)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("archive upload for %s failed after all retries: %w", objectName, lastErr)
}

func (a *GCSArchiver) upload(ctx context.Context, objectName, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", localPath, err)
	}
	defer f.Close()

	writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to copy to bucket: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize bucket write: %w", err)
	}
	return nil
}

func (a *GCSArchiver) Close() error { return a.client.Close() }

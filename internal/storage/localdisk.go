package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DiskBlobs is the local blob content store. Content lives at
// <root>/<projectID>/<categoryID>/<filename>; the locator returned by
// Put is the absolute path.
type DiskBlobs struct {
	root string
}

// NewDiskBlobs creates a store rooted at the uploads directory.
func NewDiskBlobs(root string) *DiskBlobs {
	return &DiskBlobs{root: root}
}

func (db *DiskBlobs) blobPath(p BlobPath) string {
	return filepath.Join(db.root, p.ProjectID, p.CategoryID, p.Filename)
}

// Put writes the payload, creating any missing directory levels. A
// duplicate Put to the same path overwrites.
func (db *DiskBlobs) Put(ctx context.Context, p BlobPath, data []byte) (string, error) {
	_, span := tracer.Start(ctx, "localdisk.put_blob",
		trace.WithAttributes(
			attribute.String("blob_path", p.Key()),
			attribute.Int("size_bytes", len(data)),
		),
	)
	defer span.End()

	dest := db.blobPath(p)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to write blob file: %w", err)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to resolve blob path: %w", err)
	}
	return abs, nil
}

// Get reads the stored content. A missing file surfaces as
// os.ErrNotExist so callers can distinguish it from I/O failures.
func (db *DiskBlobs) Get(ctx context.Context, p BlobPath) ([]byte, error) {
	_, span := tracer.Start(ctx, "localdisk.get_blob",
		trace.WithAttributes(attribute.String("blob_path", p.Key())),
	)
	defer span.End()

	data, err := os.ReadFile(db.blobPath(p))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read blob file: %w", err)
	}
	span.SetAttributes(attribute.Int("size_bytes", len(data)))
	return data, nil
}

// Delete removes the content. A file that is already gone is a
// success, matching the remote backend's semantics.
func (db *DiskBlobs) Delete(ctx context.Context, p BlobPath) error {
	_, span := tracer.Start(ctx, "localdisk.delete_blob",
		trace.WithAttributes(attribute.String("blob_path", p.Key())),
	)
	defer span.End()

	err := os.Remove(db.blobPath(p))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		span.RecordError(err)
		return fmt.Errorf("failed to delete blob file: %w", err)
	}
	return nil
}

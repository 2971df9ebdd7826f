package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FileCollections is the local fallback collection store. Each
// collection is one JSON array document under the data directory,
// rewritten whole on every WriteAll.
type FileCollections struct {
	dataDir string
}

// NewFileCollections creates a store rooted at dataDir. The directory
// is created lazily on first write.
func NewFileCollections(dataDir string) *FileCollections {
	return &FileCollections{dataDir: dataDir}
}

func (fc *FileCollections) path(collection string) string {
	return filepath.Join(fc.dataDir, collection+".json")
}

// ReadAll returns every record in the collection. A document that does
// not exist yet is created empty; one that fails to parse reads as
// empty so a later write can repair it.
func (fc *FileCollections) ReadAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	_, span := tracer.Start(ctx, "localfile.read_all",
		trace.WithAttributes(attribute.String("collection", collection)),
	)
	defer span.End()

	data, err := os.ReadFile(fc.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		if err := fc.writeDocument(collection, nil); err != nil {
			span.RecordError(err)
			return nil, err
		}
		span.SetAttributes(attribute.Bool("created", true))
		return nil, nil
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read collection file %q: %w", collection, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("Warning: collection file %s is unparseable, reading as empty: %v", fc.path(collection), err)
		span.SetAttributes(attribute.Bool("corrupted", true))
		return nil, nil
	}

	span.SetAttributes(attribute.Int("record_count", len(records)))
	return records, nil
}

// WriteAll replaces the stored collection with records.
func (fc *FileCollections) WriteAll(ctx context.Context, collection string, records []json.RawMessage) error {
	_, span := tracer.Start(ctx, "localfile.write_all",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("record_count", len(records)),
		),
	)
	defer span.End()

	if err := fc.writeDocument(collection, records); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// writeDocument serializes the whole collection to a temp file in the
// same directory, then renames it over the document, so a concurrent
// reader never observes a truncated document.
func (fc *FileCollections) writeDocument(collection string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collection %q: %w", collection, err)
	}

	if err := os.MkdirAll(fc.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(fc.dataDir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fc.path(collection)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace collection file: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maneesh/labarchive/internal/models"
	"github.com/maneesh/labarchive/internal/storage"
)

// FileRepository holds the file metadata collection and the blob
// content behind it. Metadata follows the collection backend, content
// follows the blob backend; the two choices are independent and the
// record's BlobURL remembers where its content went.
type FileRepository struct {
	collections *storage.Collections
	blobs       *storage.Blobs

	now   func() time.Time
	newID func() string
}

// NewFileRepository creates the repository.
func NewFileRepository(collections *storage.Collections, blobs *storage.Blobs) *FileRepository {
	return &FileRepository{
		collections: collections,
		blobs:       blobs,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// List returns all file metadata records.
func (r *FileRepository) List(ctx context.Context) ([]models.FileMetadata, error) {
	return r.load(ctx)
}

// GetByID returns the record or ErrNotFound.
func (r *FileRepository) GetByID(ctx context.Context, id string) (models.FileMetadata, error) {
	files, err := r.load(ctx)
	if err != nil {
		return models.FileMetadata{}, err
	}
	for _, f := range files {
		if f.ID == id {
			return f, nil
		}
	}
	return models.FileMetadata{}, ErrNotFound
}

// GetByPath looks a record up by its (project, category, filename)
// triple, the key used for download and delete.
func (r *FileRepository) GetByPath(ctx context.Context, projectID, categoryID, filename string) (models.FileMetadata, error) {
	files, err := r.load(ctx)
	if err != nil {
		return models.FileMetadata{}, err
	}
	for _, f := range files {
		if f.ProjectID == projectID && f.CategoryID == categoryID && f.Filename == filename {
			return f, nil
		}
	}
	return models.FileMetadata{}, ErrNotFound
}

// ListByProject returns the records belonging to one project.
func (r *FileRepository) ListByProject(ctx context.Context, projectID string) ([]models.FileMetadata, error) {
	files, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]models.FileMetadata, 0)
	for _, f := range files {
		if f.ProjectID == projectID {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// ListByCategory returns the records in one category.
func (r *FileRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.FileMetadata, error) {
	files, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]models.FileMetadata, 0)
	for _, f := range files {
		if f.CategoryID == categoryID {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// SaveContent stores the payload and records its metadata. The blob is
// written first; a crash before the metadata write leaves an
// unreferenced blob that the next upload to the same path overwrites.
// A second save to the same (project, category, filename) triple
// replaces the existing record, keeping its ID.
func (r *FileRepository) SaveContent(ctx context.Context, meta models.FileMetadata, content []byte) (models.FileMetadata, error) {
	if meta.ProjectID == "" || meta.CategoryID == "" || meta.Filename == "" {
		return models.FileMetadata{}, fmt.Errorf("%w: project, category and filename are required", ErrInvalidInput)
	}

	p := storage.BlobPath{ProjectID: meta.ProjectID, CategoryID: meta.CategoryID, Filename: meta.Filename}
	locator, backend, err := r.blobs.Put(ctx, p, content, meta.MimeType)
	if err != nil {
		return models.FileMetadata{}, err
	}

	meta.ID = r.newID()
	meta.Size = int64(len(content))
	meta.UploadedAt = r.now().UTC()
	if backend == storage.BackendRemoteBlob {
		meta.BlobURL = locator
	} else {
		meta.BlobURL = ""
	}

	files, err := r.load(ctx)
	if err != nil {
		return models.FileMetadata{}, err
	}

	replaced := false
	for i := range files {
		if files[i].ProjectID == meta.ProjectID && files[i].CategoryID == meta.CategoryID && files[i].Filename == meta.Filename {
			meta.ID = files[i].ID
			files[i] = meta
			replaced = true
			break
		}
	}
	if !replaced {
		files = append(files, meta)
	}

	if err := r.store(ctx, files); err != nil {
		return models.FileMetadata{}, err
	}
	return meta, nil
}

// OpenContent returns the payload behind a record, honoring the
// locator it was stored with.
func (r *FileRepository) OpenContent(ctx context.Context, meta models.FileMetadata) ([]byte, error) {
	p := storage.BlobPath{ProjectID: meta.ProjectID, CategoryID: meta.CategoryID, Filename: meta.Filename}
	return r.blobs.Open(ctx, p, meta.BlobURL)
}

// DeleteContent removes the payload and then the metadata record,
// keyed by the path triple. Content that is already gone is tolerated;
// the ordering means a crash between the two steps leaves dead
// metadata, which is easier to spot and clean up than an unreferenced
// blob.
func (r *FileRepository) DeleteContent(ctx context.Context, projectID, categoryID, filename string) error {
	files, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := range files {
		if files[i].ProjectID == projectID && files[i].CategoryID == categoryID && files[i].Filename == filename {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	meta := files[idx]
	p := storage.BlobPath{ProjectID: projectID, CategoryID: categoryID, Filename: filename}
	if err := r.blobs.Delete(ctx, p, meta.BlobURL); err != nil {
		return err
	}

	files = append(files[:idx], files[idx+1:]...)
	return r.store(ctx, files)
}

// DeleteByProject removes every record of one project and its content.
// Used by the project cascade.
func (r *FileRepository) DeleteByProject(ctx context.Context, projectID string) error {
	files, err := r.load(ctx)
	if err != nil {
		return err
	}

	remaining := make([]models.FileMetadata, 0, len(files))
	for _, f := range files {
		if f.ProjectID != projectID {
			remaining = append(remaining, f)
			continue
		}
		p := storage.BlobPath{ProjectID: f.ProjectID, CategoryID: f.CategoryID, Filename: f.Filename}
		if err := r.blobs.Delete(ctx, p, f.BlobURL); err != nil {
			return err
		}
	}

	if len(remaining) == len(files) {
		return nil
	}
	return r.store(ctx, remaining)
}

func (r *FileRepository) load(ctx context.Context) ([]models.FileMetadata, error) {
	raw, _, err := r.collections.ReadAll(ctx, storage.FilesCollection)
	if err != nil {
		return nil, err
	}
	files := make([]models.FileMetadata, 0, len(raw))
	for _, rec := range raw {
		var f models.FileMetadata
		if err := json.Unmarshal(rec, &f); err != nil {
			return nil, fmt.Errorf("failed to decode file record: %w", err)
		}
		files = append(files, f)
	}
	return files, nil
}

func (r *FileRepository) store(ctx context.Context, files []models.FileMetadata) error {
	raw := make([]json.RawMessage, 0, len(files))
	for _, f := range files {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to encode file record: %w", err)
		}
		raw = append(raw, data)
	}
	_, err := r.collections.WriteAll(ctx, storage.FilesCollection, raw)
	return err
}

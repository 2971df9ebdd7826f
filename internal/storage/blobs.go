package storage

import (
	"context"
	"fmt"
	"log"
	"path"
	"sync"
)

// BlobPath is the logical path of one piece of blob content. It is the
// only key the blob stores understand; they keep no metadata of their
// own.
type BlobPath struct {
	ProjectID  string
	CategoryID string
	Filename   string
}

// Key returns the path in object-key form.
func (p BlobPath) Key() string {
	return path.Join(p.ProjectID, p.CategoryID, p.Filename)
}

// Blobs routes blob content to the remote object store or the local
// uploads tree. The choice is keyed off blob credentials alone and is
// independent of the collection backend: a managed platform without
// blob credentials still writes to local disk, because payload loss is
// recoverable by re-upload where collection loss is not.
type Blobs struct {
	detector *Detector
	disk     *DiskBlobs

	mu        sync.Mutex
	remote    *MinioBlobs
	remoteKey string
}

// NewBlobs creates the blob router. Local content lives under
// uploadsDir.
func NewBlobs(detector *Detector, uploadsDir string) *Blobs {
	return &Blobs{
		detector: detector,
		disk:     NewDiskBlobs(uploadsDir),
	}
}

// Put stores content under the path and returns its locator along with
// the backend that took it. Remote locators are URLs; local locators
// are absolute paths.
func (b *Blobs) Put(ctx context.Context, p BlobPath, data []byte, contentType string) (string, Backend, error) {
	env := b.detector.Classify()
	if env.RemoteBlobAvailable {
		remote, err := b.remoteStore()
		if err != nil {
			return "", "", err
		}
		locator, err := remote.Put(ctx, p, data, contentType)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return locator, BackendRemoteBlob, nil
	}

	locator, err := b.disk.Put(ctx, p, data)
	if err != nil {
		return "", "", err
	}
	return locator, BackendLocalDisk, nil
}

// Open returns the content behind a previously stored record. The
// stored locator decides the backend, so records written under an
// earlier environment stay retrievable: a remote locator is fetched
// from the object store, anything else is read from the uploads tree.
func (b *Blobs) Open(ctx context.Context, p BlobPath, locator string) ([]byte, error) {
	if locator != "" {
		env := b.detector.Classify()
		if !env.RemoteBlobAvailable {
			return nil, fmt.Errorf("%w: remote blob credentials absent for %s", ErrBackendUnavailable, locator)
		}
		remote, err := b.remoteStore()
		if err != nil {
			return nil, err
		}
		data, err := remote.Get(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return data, nil
	}
	return b.disk.Get(ctx, p)
}

// Delete removes the content behind a record. Content that is already
// gone is a success on both backends. If the record carries a remote
// locator but the credentials have since been removed, the blob is
// unreachable; it is left behind and logged rather than failing the
// caller's metadata cleanup.
func (b *Blobs) Delete(ctx context.Context, p BlobPath, locator string) error {
	if locator != "" {
		env := b.detector.Classify()
		if !env.RemoteBlobAvailable {
			log.Printf("Warning: remote blob credentials absent, leaving %s unreferenced", locator)
			return nil
		}
		remote, err := b.remoteStore()
		if err != nil {
			return err
		}
		if err := remote.Delete(ctx, p); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return nil
	}
	return b.disk.Delete(ctx, p)
}

// remoteStore returns an object-storage client for the current
// credentials, rebuilding it only when the credential set changes.
func (b *Blobs) remoteStore() (*MinioBlobs, error) {
	creds := b.detector.blobCredentials()
	key := creds.cacheKey()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.remote != nil && b.remoteKey == key {
		return b.remote, nil
	}

	remote, err := NewMinioBlobs(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	b.remote = remote
	b.remoteKey = key
	return b.remote, nil
}

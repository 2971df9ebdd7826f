package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MinioBlobs is the remote blob content store. Objects are keyed by
// the caller-supplied path tuple; the locator returned by Put is the
// object's URL.
type MinioBlobs struct {
	client *minio.Client
	bucket string

	mu          sync.Mutex
	bucketReady bool
}

// NewMinioBlobs initializes a client for the object-storage service.
// The bucket is created lazily on the first Put.
func NewMinioBlobs(creds blobCredentials) (*MinioBlobs, error) {
	client, err := minio.New(creds.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.accessKey, creds.secretKey, ""),
		Secure: creds.useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &MinioBlobs{client: client, bucket: creds.bucket}, nil
}

func (mb *MinioBlobs) ensureBucket(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.bucketReady {
		return nil
	}

	exists, err := mb.client.BucketExists(ctx, mb.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Printf("Creating bucket: %s", mb.bucket)
		if err := mb.client.MakeBucket(ctx, mb.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	mb.bucketReady = true
	return nil
}

// Put uploads the full payload in one request and returns the object
// URL. A duplicate Put to the same path overwrites, never renames.
func (mb *MinioBlobs) Put(ctx context.Context, p BlobPath, data []byte, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "minio.put_blob",
		trace.WithAttributes(
			attribute.String("object_key", p.Key()),
			attribute.Int("size_bytes", len(data)),
		),
	)
	defer span.End()

	if err := mb.ensureBucket(ctx); err != nil {
		span.RecordError(err)
		return "", err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	reader := bytes.NewReader(data)
	_, err := mb.client.PutObject(ctx, mb.bucket, p.Key(), reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	return mb.locator(p), nil
}

// Get downloads the object's full content.
func (mb *MinioBlobs) Get(ctx context.Context, p BlobPath) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "minio.get_blob",
		trace.WithAttributes(attribute.String("object_key", p.Key())),
	)
	defer span.End()

	object, err := mb.client.GetObject(ctx, mb.bucket, p.Key(), minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read blob data: %w", err)
	}

	span.SetAttributes(attribute.Int("size_bytes", len(data)))
	return data, nil
}

// Delete removes the object. Deleting a missing object is a success.
func (mb *MinioBlobs) Delete(ctx context.Context, p BlobPath) error {
	ctx, span := tracer.Start(ctx, "minio.delete_blob",
		trace.WithAttributes(attribute.String("object_key", p.Key())),
	)
	defer span.End()

	if err := mb.client.RemoveObject(ctx, mb.bucket, p.Key(), minio.RemoveObjectOptions{}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (mb *MinioBlobs) locator(p BlobPath) string {
	u := *mb.client.EndpointURL()
	u.Path = path.Join(u.Path, mb.bucket, p.Key())
	return u.String()
}

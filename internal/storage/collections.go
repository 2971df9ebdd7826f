package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("labarchive-storage")

// Backend identifies which store served an operation.
type Backend string

const (
	BackendRemoteKV   Backend = "remote-kv"
	BackendLocalFile  Backend = "local-file"
	BackendRemoteBlob Backend = "remote-blob"
	BackendLocalDisk  Backend = "local-disk"
)

// Collection keys used verbatim against both backends.
const (
	ProjectsCollection = "projects"
	FilesCollection    = "files"
)

// Collections routes whole-collection reads and writes to the remote
// key-value store or the local file store. The backend is re-selected
// on every call from the current environment:
//
//   - managed platform, credentials present: remote only, failures
//     surface as ErrBackendUnavailable
//   - managed platform, credentials absent: ErrConfigurationMissing
//   - otherwise: remote when available, local file as a per-call
//     fallback on remote failure (never sticky)
type Collections struct {
	detector *Detector
	local    *FileCollections

	mu        sync.Mutex
	remote    *RedisCollections
	remoteKey string
}

// NewCollections creates the collection router. Local fallback
// documents live under dataDir.
func NewCollections(detector *Detector, dataDir string) *Collections {
	return &Collections{
		detector: detector,
		local:    NewFileCollections(dataDir),
	}
}

// ReadAll returns every record in the collection and the backend that
// served it.
func (c *Collections) ReadAll(ctx context.Context, collection string) ([]json.RawMessage, Backend, error) {
	ctx, span := tracer.Start(ctx, "collections.read_all",
		trace.WithAttributes(attribute.String("collection", collection)),
	)
	defer span.End()

	env := c.detector.Classify()
	span.SetAttributes(attribute.Bool("managed_platform", env.ManagedPlatform))

	if env.ManagedPlatform {
		if !env.RemoteKVAvailable {
			span.RecordError(ErrConfigurationMissing)
			return nil, "", ErrConfigurationMissing
		}
		records, err := c.remoteStore().ReadAll(ctx, collection)
		if err != nil {
			span.RecordError(err)
			return nil, "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		span.SetAttributes(attribute.String("backend", string(BackendRemoteKV)))
		return records, BackendRemoteKV, nil
	}

	if env.RemoteKVAvailable {
		records, err := c.remoteStore().ReadAll(ctx, collection)
		if err == nil {
			span.SetAttributes(attribute.String("backend", string(BackendRemoteKV)))
			return records, BackendRemoteKV, nil
		}
		log.Printf("Remote read of %q failed, falling back to local file: %v", collection, err)
	}

	records, err := c.local.ReadAll(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}
	span.SetAttributes(attribute.String("backend", string(BackendLocalFile)))
	return records, BackendLocalFile, nil
}

// WriteAll replaces the stored collection and reports the backend that
// took the write. Both backends replace the whole document, so a
// failed write leaves the previous document intact.
func (c *Collections) WriteAll(ctx context.Context, collection string, records []json.RawMessage) (Backend, error) {
	ctx, span := tracer.Start(ctx, "collections.write_all",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("record_count", len(records)),
		),
	)
	defer span.End()

	env := c.detector.Classify()
	span.SetAttributes(attribute.Bool("managed_platform", env.ManagedPlatform))

	if env.ManagedPlatform {
		if !env.RemoteKVAvailable {
			span.RecordError(ErrConfigurationMissing)
			return "", ErrConfigurationMissing
		}
		if err := c.remoteStore().WriteAll(ctx, collection, records); err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		span.SetAttributes(attribute.String("backend", string(BackendRemoteKV)))
		return BackendRemoteKV, nil
	}

	if env.RemoteKVAvailable {
		err := c.remoteStore().WriteAll(ctx, collection, records)
		if err == nil {
			span.SetAttributes(attribute.String("backend", string(BackendRemoteKV)))
			return BackendRemoteKV, nil
		}
		log.Printf("Remote write of %q failed, falling back to local file: %v", collection, err)
	}

	if err := c.local.WriteAll(ctx, collection, records); err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("backend", string(BackendLocalFile)))
	return BackendLocalFile, nil
}

// remoteStore returns a Redis-backed store for the current credentials,
// rebuilding the client only when the credential set changes.
func (c *Collections) remoteStore() *RedisCollections {
	url, token := c.detector.kvCredentials()
	key := url + "\x00" + token

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remote != nil && c.remoteKey == key {
		return c.remote
	}
	if c.remote != nil {
		if err := c.remote.Close(); err != nil {
			log.Printf("Warning: failed to close stale Redis client: %v", err)
		}
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		// Bare host:port form; a genuinely bad address will surface as
		// a backend failure on the first operation.
		opt = &redis.Options{Addr: url}
	}
	if token != "" {
		opt.Password = token
	}

	c.remote = NewRedisCollections(redis.NewClient(opt))
	c.remoteKey = key
	return c.remote
}

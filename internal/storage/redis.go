package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisCollections is the remote key-value collection store. Each
// collection is one JSON array document stored under a key named after
// the collection, read and replaced whole.
type RedisCollections struct {
	client *redis.Client
}

// NewRedisCollections wraps an existing Redis client.
func NewRedisCollections(client *redis.Client) *RedisCollections {
	return &RedisCollections{client: client}
}

// Close closes the underlying Redis connection.
func (rc *RedisCollections) Close() error {
	return rc.client.Close()
}

// ReadAll returns every record in the collection. A key that has never
// been written reads as an empty collection, as does an unparseable
// document (the next write repairs it).
func (rc *RedisCollections) ReadAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "redis.read_all",
		trace.WithAttributes(attribute.String("collection", collection)),
	)
	defer span.End()

	data, err := rc.client.Get(ctx, collection).Result()
	if err == redis.Nil {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, nil
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read collection %q: %w", collection, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		log.Printf("Warning: collection %q holds an unparseable document, reading as empty: %v", collection, err)
		span.SetAttributes(attribute.Bool("corrupted", true))
		return nil, nil
	}

	span.SetAttributes(attribute.Int("record_count", len(records)))
	return records, nil
}

// WriteAll replaces the stored collection with records in a single SET.
func (rc *RedisCollections) WriteAll(ctx context.Context, collection string, records []json.RawMessage) error {
	ctx, span := tracer.Start(ctx, "redis.write_all",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("record_count", len(records)),
		),
	)
	defer span.End()

	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal collection %q: %w", collection, err)
	}

	if err := rc.client.Set(ctx, collection, data, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to write collection %q: %w", collection, err)
	}
	return nil
}

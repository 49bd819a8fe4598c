// Package kvutil provides helpers for NATS JetStream KeyValue buckets.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketConfig builds the configuration of a single-revision bucket whose
// entries expire ttl after their last write.
//
// Parameters:
//   - name: Bucket name
//   - ttl: Entry lifetime; keys must be rewritten within ttl to stay alive
//   - storage: jetstream.FileStorage or jetstream.MemoryStorage
//
// Returns:
//   - jetstream.KeyValueConfig: Bucket configuration
func BucketConfig(name string, ttl time.Duration, storage jetstream.StorageType) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "kgroup coordination bucket",
		History:     1,
		TTL:         ttl,
		Storage:     storage,
	}
}

// EnsureKVBucketWithRetry creates or opens a KV bucket.
//
// Several group members usually start at the same time and race to create
// the same buckets; losing the race with ErrBucketExists simply opens the
// existing bucket. Other errors are retried with exponential backoff
// (10ms, 20ms, 40ms, ...).
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - maxRetries: Maximum number of attempts (3 when <= 0)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket
//   - error: Last error after all attempts, or the context error
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxRetries int,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := range maxRetries {
		kv, err := open(ctx, js, config)
		if err == nil {
			return kv, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}
		if attempt == maxRetries-1 {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w",
		config.Bucket, maxRetries, lastErr)
}

func open(ctx context.Context, js jetstream.JetStream, config jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	kv, err := js.CreateKeyValue(ctx, config)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketExists) {
		return nil, err
	}

	kv, err = js.KeyValue(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket exists but failed to open: %w", err)
	}

	return kv, nil
}

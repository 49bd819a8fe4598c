package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	kgrouptest "github.com/arloliu/kgroup/testing"
)

func TestBucketConfig(t *testing.T) {
	cfg := BucketConfig("members", 3*time.Second, jetstream.MemoryStorage)

	require.Equal(t, "members", cfg.Bucket)
	require.Equal(t, uint8(1), cfg.History)
	require.Equal(t, 3*time.Second, cfg.TTL)
	require.Equal(t, jetstream.MemoryStorage, cfg.Storage)
}

func TestEnsureKVBucketWithRetry(t *testing.T) {
	_, nc := kgrouptest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("creates then reopens", func(t *testing.T) {
		cfg := BucketConfig("ensure-once", time.Minute, jetstream.MemoryStorage)

		kv1, err := EnsureKVBucketWithRetry(ctx, js, cfg, 3)
		require.NoError(t, err)
		kv2, err := EnsureKVBucketWithRetry(ctx, js, cfg, 3)
		require.NoError(t, err)
		require.Equal(t, kv1.Bucket(), kv2.Bucket())
	})

	t.Run("concurrent members race on the same bucket", func(t *testing.T) {
		cfg := BucketConfig("ensure-race", time.Minute, jetstream.MemoryStorage)

		const members = 5
		var wg sync.WaitGroup
		errs := make(chan error, members)
		for range members {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := EnsureKVBucketWithRetry(ctx, js, cfg, 0)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, ccancel := context.WithCancel(context.Background())
		ccancel()

		_, err := EnsureKVBucketWithRetry(cctx, js, BucketConfig("never", time.Minute, jetstream.MemoryStorage), 3)
		require.Error(t, err)
	})
}

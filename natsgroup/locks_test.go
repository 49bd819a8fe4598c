package natsgroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kgroup/internal/metrics"
	kgrouptest "github.com/arloliu/kgroup/testing"
	"github.com/arloliu/kgroup/types"
)

func TestLockTable(t *testing.T) {
	_, nc := kgrouptest.StartEmbeddedNATS(t)
	kv := kgrouptest.CreateJetStreamKV(t, nc, "locks", time.Minute)
	keys := newGroupKeys(testPath)
	ctx := t.Context()

	mine := newLockTable(kv, keys, "member-a", metrics.NewNop())
	theirs := newLockTable(kv, keys, "member-b", metrics.NewNop())

	t.Run("exclusive acquire", func(t *testing.T) {
		ok, err := mine.tryAcquire(ctx, "topic1-0")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = theirs.tryAcquire(ctx, "topic1-0")
		require.NoError(t, err)
		require.False(t, ok)

		// Already held locks are not written again.
		ok, err = mine.tryAcquire(ctx, "topic1-0")
		require.NoError(t, err)
		require.True(t, ok)

		require.Equal(t, []string{"topic1-0"}, mine.ids())
		require.Empty(t, theirs.ids())
	})

	t.Run("adopts own leftover lock", func(t *testing.T) {
		_, err := kv.Put(ctx, keys.lock("topic1-1"), []byte("member-a"))
		require.NoError(t, err)

		ok, err := mine.tryAcquire(ctx, "topic1-1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []string{"topic1-0", "topic1-1"}, mine.ids())

		// Renewal works with the adopted revision.
		require.NoError(t, mine.renew(ctx))
	})

	t.Run("release frees the locks", func(t *testing.T) {
		require.NoError(t, mine.releaseAll(ctx))
		require.Empty(t, mine.ids())

		ok, err := theirs.tryAcquire(ctx, "topic1-0")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, theirs.releaseAll(ctx))
	})

	t.Run("lost lock is reported on renewal", func(t *testing.T) {
		ok, err := mine.tryAcquire(ctx, "topic2-0")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, kv.Delete(ctx, keys.lock("topic2-0")))
		ok, err = theirs.tryAcquire(ctx, "topic2-0")
		require.NoError(t, err)
		require.True(t, ok)

		err = mine.renew(ctx)
		require.ErrorIs(t, err, types.ErrLockLost)
		require.Empty(t, mine.ids())

		// Releasing must not delete the new owner's lock.
		require.NoError(t, mine.releaseAll(ctx))
		entry, err := kv.Get(ctx, keys.lock("topic2-0"))
		require.NoError(t, err)
		require.Equal(t, "member-b", string(entry.Value()))
	})
}

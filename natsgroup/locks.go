package natsgroup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/kgroup/internal/natsutil"
	"github.com/arloliu/kgroup/types"
)

// lockTable holds this member's partition locks.
//
// Uses atomic KV operations:
//   - Create (atomic): claim a partition if nobody holds it
//   - Update (with revision): renew a claim we still hold
//   - Delete (with revision): give a claim back
//
// Lock entries expire one bucket TTL after their last renewal, so locks of
// a crashed member become claimable automatically.
type lockTable struct {
	kv      jetstream.KeyValue
	keys    groupKeys
	owner   string
	metrics types.MetricsCollector

	// held maps partition IDs to the revision of our lock entry.
	held *xsync.Map[string, uint64]

	// opMu serializes KV writes so a renewal never races a release.
	opMu sync.Mutex
}

func newLockTable(kv jetstream.KeyValue, keys groupKeys, owner string, metrics types.MetricsCollector) *lockTable {
	return &lockTable{
		kv:      kv,
		keys:    keys,
		owner:   owner,
		metrics: metrics,
		held:    xsync.NewMap[string, uint64](),
	}
}

// tryAcquire claims the lock of one partition.
//
// Returns:
//   - bool: true if the lock is now held by this member
//   - error: KV error other than the lock being taken
func (l *lockTable) tryAcquire(ctx context.Context, partitionID string) (bool, error) {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	if _, ok := l.held.Load(partitionID); ok {
		return true, nil
	}

	key := l.keys.lock(partitionID)
	start := time.Now()
	rev, err := l.kv.Create(ctx, key, []byte(l.owner))
	observe(l.metrics, "create", start)
	if err == nil {
		l.held.Store(partitionID, rev)
		l.metrics.RecordLockOperation("acquire", true)

		return true, nil
	}
	if !natsutil.IsKeyTaken(err) {
		l.metrics.RecordLockOperation("acquire", false)
		return false, fmt.Errorf("failed to create lock %s: %w", key, err)
	}

	// A lock left behind by this member (e.g. a delete that failed during
	// a previous release) is adopted rather than waited out.
	entry, err := l.kv.Get(ctx, key)
	if err != nil {
		if natsutil.IsKeyGone(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read lock %s: %w", key, err)
	}
	if string(entry.Value()) == l.owner {
		l.held.Store(partitionID, entry.Revision())
		l.metrics.RecordLockOperation("acquire", true)

		return true, nil
	}

	return false, nil
}

// renew rewrites every held lock with a revision check.
//
// Returns:
//   - error: wraps types.ErrLockLost if another member took a lock or it expired
func (l *lockTable) renew(ctx context.Context) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	var errs []error
	l.held.Range(func(partitionID string, rev uint64) bool {
		key := l.keys.lock(partitionID)
		start := time.Now()
		newRev, err := l.kv.Update(ctx, key, []byte(l.owner), rev)
		observe(l.metrics, "update", start)
		if err != nil {
			l.metrics.RecordLockOperation("renew", false)
			if natsutil.IsKeyTaken(err) || natsutil.IsKeyGone(err) {
				l.held.Delete(partitionID)
				errs = append(errs, fmt.Errorf("%w: %s: %w", types.ErrLockLost, partitionID, err))
			} else {
				errs = append(errs, fmt.Errorf("failed to renew lock %s: %w", key, err))
			}

			return true
		}
		l.held.Store(partitionID, newRev)
		l.metrics.RecordLockOperation("renew", true)

		return true
	})

	return errors.Join(errs...)
}

// releaseAll deletes every held lock.
//
// Locks are forgotten before they are deleted, so a failed delete only
// leaves an entry that expires with the bucket TTL.
func (l *lockTable) releaseAll(ctx context.Context) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	var errs []error
	l.held.Range(func(partitionID string, rev uint64) bool {
		l.held.Delete(partitionID)

		key := l.keys.lock(partitionID)
		start := time.Now()
		err := l.kv.Delete(ctx, key, jetstream.LastRevision(rev))
		observe(l.metrics, "delete", start)
		if err != nil && !natsutil.IsKeyGone(err) && !natsutil.IsKeyTaken(err) {
			l.metrics.RecordLockOperation("release", false)
			errs = append(errs, fmt.Errorf("failed to delete lock %s: %w", key, err))

			return true
		}
		l.metrics.RecordLockOperation("release", true)

		return true
	})

	return errors.Join(errs...)
}

// ids returns the held partition IDs, sorted.
func (l *lockTable) ids() []string {
	out := make([]string, 0, l.held.Size())
	l.held.Range(func(partitionID string, _ uint64) bool {
		out = append(out, partitionID)
		return true
	})
	slices.Sort(out)

	return out
}

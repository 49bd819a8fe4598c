package kgroup

import (
	"sync/atomic"
	"time"

	"github.com/arloliu/kgroup/types"
)

// coordState is the mutable state of a Partitioner.
//
// Invariants:
//   - at most one live set partitioner, replaced only through adopt
//   - released is cleared only by acquire
//   - acquired is empty whenever primitive is nil
type coordState struct {
	// target is the partition set primitive was built with.
	target types.PartitionSet

	// acquired is the mapping delivered to the acquire callback.
	acquired types.Assignment

	// delivered reports whether acquired was handed to the acquire callback
	// for the current primitive.
	delivered bool

	primitive types.SetPartitioner
	released  bool

	// lastRefresh is when the partition set was last computed successfully.
	lastRefresh time.Time

	// forceRefresh is set from other goroutines by ForceRefresh.
	forceRefresh atomic.Bool

	// observed is the last observed primitive state.
	observed types.PartitionState
}

// refreshDue reports whether the partition set must be recomputed.
func (st *coordState) refreshDue(now time.Time, cooldown time.Duration) bool {
	return st.primitive == nil || st.forceRefresh.Load() || now.Sub(st.lastRefresh) >= cooldown
}

// adopt installs a new primitive built for target. The previous primitive
// must already be finished.
func (st *coordState) adopt(target types.PartitionSet, primitive types.SetPartitioner, now time.Time) {
	st.target = target
	st.primitive = primitive
	st.acquired = types.Assignment{}
	st.delivered = false
	st.touch(now)
}

// touch records a refresh that kept the current primitive.
func (st *coordState) touch(now time.Time) {
	st.lastRefresh = now
	st.forceRefresh.Store(false)
}

func (st *coordState) acquire(mapping types.Assignment) {
	st.acquired = mapping
	st.delivered = true
	st.released = false
}

func (st *coordState) release() {
	st.acquired = types.Assignment{}
	st.delivered = false
	st.released = true
}

// dropPrimitive forgets the finished primitive and its partitions.
func (st *coordState) dropPrimitive() {
	st.primitive = nil
	st.acquired = types.Assignment{}
	st.delivered = false
}

// reset returns to the state of a Partitioner that never started.
func (st *coordState) reset() {
	st.target = types.NewPartitionSet()
	st.dropPrimitive()
	st.released = false
	st.lastRefresh = time.Time{}
	st.forceRefresh.Store(false)
	st.observed = types.PartitionAllocating
}

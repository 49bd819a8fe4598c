package types

import (
	"context"
	"time"
)

// Session is a connection to the coordination service.
//
// The Partitioner owns its Session exclusively; a session is never shared
// between Partitioner instances.
type Session interface {
	// State returns the current connection state.
	State() SessionState

	// Connect (re)establishes the session. It is a no-op when already connected.
	Connect(ctx context.Context) error

	// NewSetPartitioner joins the group at path and starts arbitrating set.
	//
	// Parameters:
	//   - ctx: Context for the setup calls
	//   - path: Deterministic group path shared by all members
	//   - set: Partition tokens to divide among the members
	//   - timeBoundary: How long membership must stay stable before allocation
	//
	// Returns:
	//   - SetPartitioner: The started partitioner
	//   - error: Setup error
	NewSetPartitioner(ctx context.Context, path string, set []string, timeBoundary time.Duration) (SetPartitioner, error)

	// Stop gracefully stops the session, flushing pending work.
	Stop() error

	// Close releases the session's resources.
	Close() error
}

// SetPartitioner is a group-partitioning primitive.
//
// Given a candidate set of tokens, it divides the set among all members of
// the group and exposes the member's lifecycle through State.
type SetPartitioner interface {
	// State returns the current lifecycle state.
	State() PartitionState

	// WaitForAcquire blocks while the state is PartitionAllocating or until
	// ctx is done. A done context is not an error.
	WaitForAcquire(ctx context.Context) error

	// Held returns the tokens currently held by this member, sorted.
	Held() []string

	// ReleaseSet acknowledges a Release, gives up held tokens and lets the
	// group reallocate.
	ReleaseSet(ctx context.Context) error

	// Finish leaves the group and disposes the partitioner. It is idempotent.
	Finish(ctx context.Context) error
}

// TopicMetadata answers broker metadata queries.
type TopicMetadata interface {
	// TopicPartitions returns the valid sub-partition indices of each
	// requested topic. Topics unknown to the broker may be missing from the
	// result, and implementations may return extra topics.
	TopicPartitions(ctx context.Context, topics []string) (map[string][]int, error)

	// Close releases the broker connection.
	Close() error
}

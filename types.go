package kgroup

import (
	"context"

	"github.com/arloliu/kgroup/types"
)

// Re-export types from the types package.
//
// Internal packages depend on types rather than on the root package, which
// avoids import cycles while still letting callers write kgroup.Partition,
// kgroup.Logger and so on.
type (
	Partition      = types.Partition
	PartitionSet   = types.PartitionSet
	Assignment     = types.Assignment
	PartitionState = types.PartitionState
	SessionState   = types.SessionState
)

// Re-export interfaces from the types package for convenience.
type (
	Session            = types.Session
	SetPartitioner     = types.SetPartitioner
	TopicMetadata      = types.TopicMetadata
	AssignmentStrategy = types.AssignmentStrategy
	MetricsCollector   = types.MetricsCollector
	Logger             = types.Logger
	Hooks              = types.Hooks
)

// Re-export state constants from the types package.
const (
	PartitionAllocating = types.PartitionAllocating
	PartitionAcquired   = types.PartitionAcquired
	PartitionRelease    = types.PartitionRelease
	PartitionFailure    = types.PartitionFailure

	SessionLost      = types.SessionLost
	SessionSuspended = types.SessionSuspended
	SessionConnected = types.SessionConnected
)

// AssignmentFunc receives a partition mapping on acquire or release.
//
// The mapping is owned by the callee; the Partitioner keeps its own copy.
type AssignmentFunc func(ctx context.Context, partitions Assignment) error

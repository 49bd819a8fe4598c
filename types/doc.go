// Package types provides core type definitions and interfaces for the kgroup library.
//
// This package contains shared types that are used across multiple packages in the
// kgroup library. By keeping these types in a separate package, we avoid import cycles
// between the root kgroup package and its internal implementations.
//
// Key types:
//   - Partition, PartitionSet: Structured topic sub-partition identifiers
//   - Assignment: Acquired topic to sub-partition index mapping
//   - PartitionState, SessionState: Coordination lifecycle states
//   - Session, SetPartitioner: Coordination service boundary
//   - TopicMetadata: Broker metadata boundary
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
